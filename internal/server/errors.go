package server

import (
	"errors"
	"net/http"

	creditdomain "github.com/casaflowlabs/casaflow/internal/credit/domain"
	quotadomain "github.com/casaflowlabs/casaflow/internal/quota/domain"
	routingdomain "github.com/casaflowlabs/casaflow/internal/routing/domain"
	teamdomain "github.com/casaflowlabs/casaflow/internal/team/domain"
	"github.com/gin-gonic/gin"
)

// AbortWithError maps domain errors to the HTTP contract. Unknown errors are
// surfaced as 500 internal_error without detail.
func AbortWithError(c *gin.Context, err error) {
	var dailyLimit *creditdomain.DailyLimitError
	if errors.As(err, &dailyLimit) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":       "daily_limit_exceeded",
			"spent_today": dailyLimit.SpentToday,
			"daily_limit": dailyLimit.DailyLimit,
		})
		return
	}

	switch {
	case errors.Is(err, creditdomain.ErrInsufficientBalance):
		abort(c, http.StatusPaymentRequired, err)
	case errors.Is(err, creditdomain.ErrRuleDisabled):
		abort(c, http.StatusForbidden, err)
	case errors.Is(err, creditdomain.ErrAccountNotFound),
		errors.Is(err, creditdomain.ErrRuleNotFound),
		errors.Is(err, routingdomain.ErrRuleNotFound),
		errors.Is(err, teamdomain.ErrMemberNotFound):
		abort(c, http.StatusNotFound, err)
	case errors.Is(err, creditdomain.ErrMissingIdempotencyKey),
		errors.Is(err, creditdomain.ErrInvalidAmount),
		errors.Is(err, routingdomain.ErrInvalidRule),
		errors.Is(err, routingdomain.ErrInvalidDirection),
		errors.Is(err, teamdomain.ErrInvalidMember):
		abort(c, http.StatusBadRequest, err)
	case errors.Is(err, quotadomain.ErrLeadQuotaExceeded):
		abort(c, http.StatusTooManyRequests, err)
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func abortInvalid(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": msg})
}
