package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
)

func Test_sendgridService_prepare(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewSendgridService(conf, core.NopLogger{}).(*sendgridService)

	m := svc.prepare(core.EmailMessage{
		To:           []mail.Address{{Name: "Mama", Address: "mama@test.cd"}},
		Bcc:          []mail.Address{{Address: "audit@test.cd"}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TextContent:  "reset link",
		HTMLContent:  "<a href=\"https://app/reset\">reset</a>",
	})

	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "["+conf.AppName+"] Password Reset", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "mama@test.cd", p.To[0].Address)
	require.Len(t, p.BCC, 1)

	assert.Equal(t, []string{"password_reset"}, m.Categories)
	require.NotNil(t, m.TrackingSettings)
	require.NotNil(t, m.TrackingSettings.ClickTracking)
	assert.False(t, *m.TrackingSettings.ClickTracking.Enable, "reset links must not be rewritten")

	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "text/html", m.Content[1].Type)
}
