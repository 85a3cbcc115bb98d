// Package inmemdb keeps every table in process memory. It backs the API tests and local demos.
package inmemdb

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/exam"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/grade"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/homework"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/schedule"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/student"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
)

// DB guards all tables with a single lock so cross-table rules (cascades, capacity) stay atomic.
type DB struct {
	mutex sync.RWMutex

	users         map[string]user.User
	otps          map[string]user.OTP
	sessions      map[string]session.Session
	students      map[string]student.Profile
	homework      map[string]homework.Homework
	submissions   map[string]homework.Submission
	grades        map[string]grade.DailyGrade
	schedules     map[string]schedule.Schedule
	registrations map[regKey]schedule.Registration
	exams         map[string]exam.Exam
	results       map[string]exam.Result
}

type regKey struct {
	scheduleID string
	studentID  string
}

func Open() *DB {
	return &DB{
		users:         make(map[string]user.User),
		otps:          make(map[string]user.OTP),
		sessions:      make(map[string]session.Session),
		students:      make(map[string]student.Profile),
		homework:      make(map[string]homework.Homework),
		submissions:   make(map[string]homework.Submission),
		grades:        make(map[string]grade.DailyGrade),
		schedules:     make(map[string]schedule.Schedule),
		registrations: make(map[regKey]schedule.Registration),
		exams:         make(map[string]exam.Exam),
		results:       make(map[string]exam.Result),
	}
}

// deleteUser cascades like the SQL foreign keys do. Callers hold the write lock.
func (db *DB) deleteUser(id string) {
	delete(db.users, id)
	delete(db.otps, id)
	for sid, s := range db.sessions {
		if s.UserID == id {
			delete(db.sessions, sid)
		}
	}
	delete(db.students, id)
	for uid, p := range db.students {
		if p.ParentID.String == id {
			p.ParentID.String, p.ParentID.Valid = "", false
			db.students[uid] = p
		}
	}
	for sid, sub := range db.submissions {
		if sub.StudentID == id {
			delete(db.submissions, sid)
		}
	}
	for gid, g := range db.grades {
		if g.StudentID == id {
			delete(db.grades, gid)
		}
	}
	for k := range db.registrations {
		if k.studentID == id {
			delete(db.registrations, k)
		}
	}
	for rid, r := range db.results {
		if r.StudentID == id {
			delete(db.results, rid)
		}
	}
}

func contains(s, search string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(search))
}

func matchesAny(search string, fields ...string) bool {
	for _, f := range fields {
		if contains(f, search) {
			return true
		}
	}
	return false
}

// comparator returns -1, 0 or 1.
type comparator[T any] func(a, b T) int

// sortBy sorts items by the given orderings; unknown fields are skipped.
// Ties keep the ID order so listings are stable.
func sortBy[T any](items []T, fields map[string]comparator[T], id func(T) string, ordering []core.DBOrdering) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range ordering {
			cmp, ok := fields[ord.Field]
			if !ok {
				continue
			}
			c := cmp(items[i], items[j])
			if !ord.Ascending {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return id(items[i]) < id(items[j])
	})
}

type ordered interface {
	~string | ~int | ~int64 | ~float64
}

func compare[V ordered](a, b V) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}
