package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/flowglad/flowglad-sub009/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

func parseSnowflakeID(value, field string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	parsed, err := snowflake.ParseString(trimmed)
	if err != nil || parsed <= 0 {
		return 0, newValidationError(field, "invalid_"+field, "invalid "+strings.ReplaceAll(field, "_", " "))
	}
	return parsed, nil
}

func parseOptionalSnowflakeID(value, field string) (*snowflake.ID, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := parseSnowflakeID(value, field)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseOptionalTime(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, err
	}
	parsed = parsed.UTC()
	return &parsed, nil
}

func parsePagination(c *gin.Context) (pagination.Pagination, error) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil || page.PageSize < 0 {
		return page, newValidationError("page_size", "invalid_page_size", "invalid page size")
	}
	page.PageToken = strings.TrimSpace(page.PageToken)
	return page, nil
}
