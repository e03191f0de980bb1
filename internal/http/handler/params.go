package handler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"

	"qcportal/internal/model"
)

func kindParam(c *fiber.Ctx) (model.Kind, error) {
	return model.ParseKind(c.Params("kind"))
}

func idParam(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

// modelParam returns the decoded :model_no segment. Model numbers may contain
// characters that clients percent-encode.
func modelParam(c *fiber.Ctx) string {
	raw := c.Params("model_no")
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func boolQuery(c *fiber.Ctx, key string) (bool, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

// stringMap reads a JSON object as string values. Numbers and booleans keep
// their literal text so "0.5" and 0.5 store the same thing.
func stringMap(r gjson.Result) map[string]string {
	if !r.IsObject() {
		return nil
	}
	out := make(map[string]string)
	r.ForEach(func(k, v gjson.Result) bool {
		if v.Type == gjson.Null {
			out[k.String()] = ""
		} else {
			out[k.String()] = v.String()
		}
		return true
	})
	return out
}
