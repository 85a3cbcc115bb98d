package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
)

const (
	orderingParam = "ordering"
	dateLayout    = "2006-01-02"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=name,-created_at`; a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

func bindPage(ctx echo.Context) core.Page {
	var page core.Page
	page.Number, _ = strconv.Atoi(ctx.QueryParam("page"))
	page.Size, _ = strconv.Atoi(ctx.QueryParam("page_size"))
	page.Clean()
	return page
}

// bindDate parses an optional `YYYY-MM-DD` query parameter.
func bindDate(ctx echo.Context, param string) (*time.Time, error) {
	val := ctx.QueryParam(param)
	if val == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, val)
	if err != nil {
		msg := "must be a date formatted as " + dateLayout
		return nil, core.NewValidationError(errors.Wrap(err, param), core.FieldError{Field: param, Error: msg})
	}
	return &d, nil
}

// bindIndex parses a non-negative integer path parameter.
func bindIndex(ctx echo.Context, param string) (int, bool) {
	i, err := strconv.Atoi(ctx.Param(param))
	return i, err == nil && i >= 0
}
