// Package timezone keeps the application-wide location used for timestamps.
//
// Call Init once at startup with the APP_TIMEZONE value (an IANA name such as "Asia/Jakarta").
// Until then, and whenever the name cannot be loaded, UTC is used:
//
//	timezone.Init(cfg.App.Timezone)
//	now := timezone.Now()
//	t, err := timezone.Parse(time.RFC3339, "2024-01-10T09:00:00+07:00")
package timezone
