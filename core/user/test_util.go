package user

import (
	"github.com/karemsaeed20020/Education-Platform-sub002/core"
)

// NewServiceMock returns a Service that sends its emails synchronously.
func NewServiceMock(conf *core.Config, repo Repository, mailSvc core.EmailService, logger core.Logger) *Service {
	svc := NewService(conf, repo, mailSvc, logger)
	svc.syncMail = true
	return svc
}

// MakeResetToken exposes the password reset token of a user for tests.
func (svc *Service) MakeResetToken(usr User) string {
	return svc.tokens.makeToken(usr)
}
