package room_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	otelMocks "ruang/infras/otel/mocks"
	"ruang/internal/domains/room/model/dto"
	"ruang/internal/handlers/room"
	gDto "ruang/shared/dto"
)

type fakeRoomService struct {
	created []dto.CreateRoomRequest
	updated []dto.UpdateRoomRequest
}

func (f *fakeRoomService) Create(_ context.Context, req dto.CreateRoomRequest) (dto.RoomResponse, error) {
	f.created = append(f.created, req)

	return dto.RoomResponse{
		ID:         "room-1",
		Name:       req.Name,
		Capacity:   req.Capacity,
		Facilities: req.Facilities,
		Status:     "AVAILABLE",
	}, nil
}

func (f *fakeRoomService) GetAll(context.Context, gDto.QueryParams, gDto.FilterGroup) (dto.GetRoomsResponse, error) {
	return dto.GetRoomsResponse{}, nil
}

func (f *fakeRoomService) Count(context.Context, gDto.QueryParams, gDto.FilterGroup) (int, error) {
	return 0, nil
}

func (f *fakeRoomService) Get(context.Context, string) (dto.RoomResponse, error) {
	return dto.RoomResponse{}, nil
}

func (f *fakeRoomService) Update(_ context.Context, req dto.UpdateRoomRequest, _ string) error {
	f.updated = append(f.updated, req)

	return nil
}

func (f *fakeRoomService) Delete(context.Context, string) error {
	return nil
}

func (f *fakeRoomService) Stats(context.Context) (dto.StatsResponse, error) {
	return dto.StatsResponse{}, nil
}

func multipartRequest(t *testing.T, method string, fields map[string][]string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for name, values := range fields {
		for _, value := range values {
			require.NoError(t, writer.WriteField(name, value))
		}
	}

	require.NoError(t, writer.Close())

	request := httptest.NewRequest(method, "/v1/rooms", body)
	request.Header.Set("Content-Type", writer.FormDataContentType())

	return request
}

func TestHandler_CreateRoom(t *testing.T) {
	tests := []struct {
		name       string
		fields     map[string][]string
		wantStatus int
		assertions func(t *testing.T, svc *fakeRoomService, recorder *httptest.ResponseRecorder)
	}{
		{
			name: "comma separated facilities are split",
			fields: map[string][]string{
				"name":       {"Lab A"},
				"capacity":   {"40"},
				"facilities": {"projector,whiteboard"},
			},
			wantStatus: http.StatusCreated,
			assertions: func(t *testing.T, svc *fakeRoomService, recorder *httptest.ResponseRecorder) {
				require.Len(t, svc.created, 1)
				assert.Equal(t, "Lab A", svc.created[0].Name)
				assert.Equal(t, 40, svc.created[0].Capacity)
				assert.Equal(t, []string{"projector", "whiteboard"}, svc.created[0].Facilities)

				var body struct {
					Data dto.RoomResponse `json:"data"`
				}
				require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
				assert.Equal(t, "room-1", body.Data.ID)
				assert.Equal(t, "Lab A", body.Data.Name)
			},
		},
		{
			name: "repeated facilities are kept",
			fields: map[string][]string{
				"name":       {"Lab B"},
				"facilities": {"projector", "ac"},
			},
			wantStatus: http.StatusCreated,
			assertions: func(t *testing.T, svc *fakeRoomService, _ *httptest.ResponseRecorder) {
				require.Len(t, svc.created, 1)
				assert.Equal(t, []string{"projector", "ac"}, svc.created[0].Facilities)
				assert.Zero(t, svc.created[0].Capacity)
			},
		},
		{
			name: "non numeric capacity is rejected",
			fields: map[string][]string{
				"name":     {"Lab C"},
				"capacity": {"forty"},
			},
			wantStatus: http.StatusBadRequest,
			assertions: func(t *testing.T, svc *fakeRoomService, recorder *httptest.ResponseRecorder) {
				assert.Empty(t, svc.created)
				assert.Contains(t, recorder.Body.String(), "capacity must be a whole number")
			},
		},
		{
			name:       "missing name is rejected",
			fields:     map[string][]string{"capacity": {"10"}},
			wantStatus: http.StatusBadRequest,
			assertions: func(t *testing.T, svc *fakeRoomService, _ *httptest.ResponseRecorder) {
				assert.Empty(t, svc.created)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeRoomService{}
			handler := room.New(svc, otelMocks.NewOtel())

			recorder := httptest.NewRecorder()
			handler.CreateRoom(recorder, multipartRequest(t, http.MethodPost, tt.fields))

			assert.Equal(t, tt.wantStatus, recorder.Code)
			tt.assertions(t, svc, recorder)
		})
	}
}

func TestHandler_UpdateRoomFacilities(t *testing.T) {
	t.Run("omitted facilities stay untouched", func(t *testing.T) {
		svc := &fakeRoomService{}
		handler := room.New(svc, otelMocks.NewOtel())

		recorder := httptest.NewRecorder()
		handler.UpdateRoom(recorder, multipartRequest(t, http.MethodPatch, map[string][]string{"name": {"Lab A"}}))

		assert.Equal(t, http.StatusOK, recorder.Code)
		require.Len(t, svc.updated, 1)
		assert.Nil(t, svc.updated[0].Facilities)
	})

	t.Run("comma separated facilities replace the list", func(t *testing.T) {
		svc := &fakeRoomService{}
		handler := room.New(svc, otelMocks.NewOtel())

		recorder := httptest.NewRecorder()
		handler.UpdateRoom(recorder, multipartRequest(t, http.MethodPatch, map[string][]string{"facilities": {"ac,projector"}}))

		assert.Equal(t, http.StatusOK, recorder.Code)
		require.Len(t, svc.updated, 1)
		assert.Equal(t, pq.StringArray{"ac", "projector"}, svc.updated[0].Facilities)
	})
}
