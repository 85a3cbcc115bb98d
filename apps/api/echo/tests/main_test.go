package tests

import (
	"os"
	"testing"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	appfs "github.com/karemsaeed20020/Education-Platform-sub002/fs"
)

func TestMain(m *testing.M) {
	// emails are only kept by the mock when their templates render
	core.ParseEmailTemplates(appfs.FS, "templates/email", core.NopLogger{}, true /* strict */)

	os.Exit(m.Run())
}
