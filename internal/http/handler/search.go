package handler

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"qcportal/internal/model"
	"qcportal/internal/service"
)

// filterError is a query-string problem reported as 400 with its own code.
type filterError struct {
	code, msg string
}

func (e *filterError) Error() string { return e.msg }

func dateQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	t, err := model.ParseDate(v)
	if err != nil {
		return nil, &filterError{"INVALID_DATE", fmt.Sprintf("%s: %v", key, err)}
	}
	return &t, nil
}

func intQuery(c *fiber.Ctx, key, code string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &filterError{code, "invalid " + key}
	}
	return n, nil
}

// searchFilter builds a SearchFilter from the query string shared by /search and /export.
func searchFilter(c *fiber.Ctx) (service.SearchFilter, error) {
	f := service.SearchFilter{
		ModelNo:  c.Query("model_no"),
		Version:  c.Query("version"),
		SerialNo: c.Query("serial_no"),
		MO:       c.Query("mo"),
		Text:     c.Query("q"),
		Customer: c.Query("customer"),
	}
	var err error
	if f.From, err = dateQuery(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = dateQuery(c, "to"); err != nil {
		return f, err
	}
	if f.IncludeUndated, err = boolQuery(c, "include_undated"); err != nil {
		return f, &filterError{"INVALID_QUERY", "include_undated must be a boolean"}
	}
	if f.Order, err = service.ParseOrder(c.Query("order")); err != nil {
		return f, &filterError{"INVALID_ORDER", "order must be newest or severity"}
	}
	if f.Limit, err = intQuery(c, "limit", "INVALID_LIMIT"); err != nil {
		return f, err
	}
	if f.Offset, err = intQuery(c, "offset", "INVALID_OFFSET"); err != nil {
		return f, err
	}
	return f, nil
}

func writeFilterError(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*filterError); ok {
		return writeError(c, fiber.StatusBadRequest, fe.code, fe.msg)
	}
	return writeServiceError(c, err)
}

// SearchRecords godoc
// @Summary Search records of one kind
// @Param kind path string true "first_piece or nonconformity"
// @Param from query string false "event date lower bound (inclusive)"
// @Param to query string false "event date upper bound (inclusive)"
// @Param include_undated query bool false "keep undated records when a range is set"
// @Param order query string false "newest or severity"
// @Success 200 {object} service.SearchResult
// @Router /search/{kind} [get]
func SearchRecords(svc service.SearchService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind, err := kindParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", err.Error())
		}
		f, err := searchFilter(c)
		if err != nil {
			return writeFilterError(c, err)
		}
		res, err := svc.Search(c.UserContext(), kind, f)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// ExportRecords godoc
// @Summary Export matching records as CSV
// @Produce text/csv
// @Router /export/{kind} [get]
func ExportRecords(svc service.SearchService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind, err := kindParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", err.Error())
		}
		f, err := searchFilter(c)
		if err != nil {
			return writeFilterError(c, err)
		}
		var buf bytes.Buffer
		n, err := svc.Export(c.UserContext(), kind, f, &buf)
		if err != nil {
			return writeServiceError(c, err)
		}
		c.Attachment(fmt.Sprintf("%s-%s.csv", kind, time.Now().Format("20060102")))
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set("X-Total-Count", strconv.Itoa(n))
		return c.Send(buf.Bytes())
	}
}

// ListCustomers returns every distinct customer value.
func ListCustomers(svc service.SearchService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var kind model.Kind
		if v := c.Query("kind"); v != "" {
			k, err := model.ParseKind(v)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", err.Error())
			}
			kind = k
		}
		customers, err := svc.DistinctCustomers(c.UserContext(), kind)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": customers})
	}
}
