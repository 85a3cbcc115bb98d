package shell

import (
	"fmt"

	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
)

type NavItem struct {
	Label string `json:"label"`
	Path  string `json:"path"`
	Icon  string `json:"icon,omitempty"`
}

type Navigation struct {
	Navbar  []NavItem `json:"navbar"`
	Sidebar []NavItem `json:"sidebar"`
}

var commonNavbar = []NavItem{
	{Label: "الملف الشخصي", Path: "/profile", Icon: "user"},
}

// NavigationFor returns the navbar and sidebar entries of a role.
func NavigationFor(role session.Role) Navigation {
	home := NavItem{Label: "لوحة التحكم", Path: role.HomePath(), Icon: "home"}

	switch role {
	case session.RoleAdmin:
		return Navigation{
			Navbar: commonNavbar,
			Sidebar: []NavItem{
				home,
				{Label: "الطلاب", Path: "/admin/students", Icon: "users"},
				{Label: "الواجبات", Path: "/admin/homework", Icon: "book"},
				{Label: "الدرجات اليومية", Path: "/admin/daily-grades", Icon: "star"},
				{Label: "المواعيد", Path: "/admin/schedules", Icon: "calendar"},
				{Label: "الاختبارات", Path: "/admin/exams", Icon: "clipboard"},
			},
		}
	case session.RoleStudent:
		return Navigation{
			Navbar: commonNavbar,
			Sidebar: []NavItem{
				home,
				{Label: "واجباتي", Path: "/student/homework", Icon: "book"},
				{Label: "درجاتي", Path: "/student/daily-grades", Icon: "star"},
				{Label: "المواعيد", Path: "/student/schedules", Icon: "calendar"},
				{Label: "الاختبارات", Path: "/student/exams", Icon: "clipboard"},
				{Label: "النتائج", Path: "/student/results", Icon: "award"},
			},
		}
	case session.RoleParent:
		return Navigation{
			Navbar: commonNavbar,
			Sidebar: []NavItem{
				home,
				{Label: "أبنائي", Path: "/parent/children", Icon: "users"},
			},
		}
	case session.RoleGuest:
		return Navigation{
			Navbar:  []NavItem{{Label: "تسجيل الدخول", Path: session.LoginPath, Icon: "log-in"}},
			Sidebar: []NavItem{home},
		}
	default:
		panic(fmt.Sprintf("shell: unhandled role %d", uint8(role)))
	}
}

// LayoutView is the serializable layout of a mounted shell.
type LayoutView struct {
	State       State `json:"state"`
	SidebarOpen bool  `json:"sidebar_open"`
	IsMobile    bool  `json:"is_mobile"`
}

func ViewOf(s State) LayoutView {
	return LayoutView{State: s, SidebarOpen: s.SidebarOpen(), IsMobile: s.IsMobile()}
}
