package dto

import (
	"strings"

	"ruang/internal/domains/user/model"
	"ruang/shared"
	"ruang/shared/constant"
	gDto "ruang/shared/dto"
	gModel "ruang/shared/model"
	"ruang/shared/timezone"

	"github.com/google/uuid"
)

// SortableFields maps the accepted sort_by values to qualified columns.
var SortableFields = map[string]string{
	"name":       model.TableName + "." + model.FieldName,
	"email":      model.TableName + "." + model.FieldEmail,
	"role":       model.TableName + "." + model.FieldRole,
	"created_at": model.TableName + "." + constant.FieldCreatedAt,
}

type CreateUserRequest struct {
	Email    string  `json:"email"    validate:"required,email,max=100"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Name     string  `json:"name"     validate:"notblank,max=100"`
	NIM      *string `json:"nim"      validate:"omitempty,numeric,max=20"`
	Role     string  `json:"role"     validate:"omitempty,oneof=admin student"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *CreateUserRequest) ToModel(username, hashedPassword string) model.User {
	role := r.Role
	if role == "" {
		role = constant.RoleStudent
	}

	return model.User{
		ID:       uuid.NewString(),
		Email:    NormalizeEmail(r.Email),
		Password: hashedPassword,
		Name:     strings.TrimSpace(r.Name),
		NIM:      r.NIM,
		Role:     role,
		Active:   true,
		Metadata: gModel.NewMetadata(timezone.Now(), username),
	}
}

type UpdateRoleRequest struct {
	Role string `db:"role" json:"role" validate:"required,oneof=admin student"`
}

type UserResponse struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	NIM       *string `json:"nim"`
	Role      string  `json:"role"`
	Active    bool    `json:"active"`
	LastLogin *string `json:"last_login,omitempty"`
	gDto.Metadata
}

func (r *UserResponse) FromModel(model model.User) {
	r.ID = model.ID
	r.Email = model.Email
	r.Name = model.Name
	r.NIM = model.NIM
	r.Role = model.Role
	r.Active = model.Active
	r.LastLogin = nil

	if model.LastLogin != nil {
		lastLogin := timezone.Format(*model.LastLogin, constant.DateFormat)
		r.LastLogin = &lastLogin
	}

	r.Metadata.FromModel(model.Metadata)
}

type GetUsersResponse struct {
	Users     []UserResponse `json:"users"`
	TotalPage int            `json:"total_page"`
	TotalData int            `json:"total_data"`
}

func (r *GetUsersResponse) FromModels(models []model.User, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Users = make([]UserResponse, len(models))
	for i, mod := range models {
		r.Users[i].FromModel(mod)
	}
}
