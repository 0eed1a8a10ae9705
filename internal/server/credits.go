package server

import (
	"strconv"

	creditdomain "github.com/casaflowlabs/casaflow/internal/credit/domain"
	"github.com/casaflowlabs/casaflow/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

type consumeRequest struct {
	Action        string  `json:"action"`
	ReferenceType *string `json:"reference_type"`
	ReferenceID   *string `json:"reference_id"`
	// Accepted in the body for clients that cannot set headers; the
	// Idempotency-Key header wins when both are present.
	IdempotencyKey string `json:"idempotency_key"`
}

// @Summary      Consume Credits
// @Description  Debit the account for a billable action, exactly once per idempotency key
// @Tags         credits
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string  false  "Idempotency Key"
// @Param        accountId  path  string          true  "Account ID"
// @Param        request    body  consumeRequest  true  "Consume Request"
// @Success      200  {object}  creditdomain.ConsumeResponse
// @Failure      402  {object}  map[string]string
// @Failure      403  {object}  map[string]any
// @Router       /credits/{accountId}/consume [post]
func (s *Server) Consume(c *gin.Context) {
	accountID, ok := parseID(c, "accountId")
	if !ok {
		return
	}

	var req consumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, "malformed consume request")
		return
	}

	key := idempotencyKeyFromHeader(c)
	if key == "" {
		key = req.IdempotencyKey
	}

	resp, err := s.creditSvc.Consume(c.Request.Context(), creditdomain.ConsumeRequest{
		AccountID:      accountID,
		Action:         req.Action,
		IdempotencyKey: key,
		ReferenceType:  req.ReferenceType,
		ReferenceID:    req.ReferenceID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

type purchaseRequest struct {
	Credits int64   `json:"credits"`
	Price   float64 `json:"price"`
}

// @Summary      Purchase Credits
// @Tags         credits
// @Accept       json
// @Produce      json
// @Param        accountId  path  string           true  "Account ID"
// @Param        request    body  purchaseRequest  true  "Purchase Request"
// @Success      200  {object}  creditdomain.ConsumeResponse
// @Router       /credits/{accountId}/purchase [post]
func (s *Server) Purchase(c *gin.Context) {
	accountID, ok := parseID(c, "accountId")
	if !ok {
		return
	}

	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, "malformed purchase request")
		return
	}

	resp, err := s.creditSvc.Purchase(c.Request.Context(), creditdomain.PurchaseRequest{
		AccountID: accountID,
		Credits:   req.Credits,
		Price:     req.Price,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// @Summary      Get Ledger
// @Description  Paged, newest-first ledger entries with a monthly summary
// @Tags         credits
// @Produce      json
// @Param        accountId  path   string  true   "Account ID"
// @Param        page       query  int     false  "Page"
// @Param        page_size  query  int     false  "Page Size"
// @Param        type       query  string  false  "Entry Type (credit|debit)"
// @Success      200  {object}  creditdomain.LedgerResponse
// @Router       /credits/{accountId}/ledger [get]
func (s *Server) GetLedger(c *gin.Context) {
	accountID, ok := parseID(c, "accountId")
	if !ok {
		return
	}

	entryType := creditdomain.EntryType(c.Query("type"))
	if entryType != "" && entryType != creditdomain.EntryCredit && entryType != creditdomain.EntryDebit {
		abortInvalid(c, "type must be credit or debit")
		return
	}

	resp, err := s.creditSvc.Ledger(c.Request.Context(), creditdomain.LedgerRequest{
		AccountID: accountID,
		Type:      entryType,
		Page: pagination.Pagination{
			Page:     queryInt(c, "page"),
			PageSize: queryInt(c, "page_size"),
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// @Summary      Get Credit Account
// @Tags         credits
// @Produce      json
// @Param        accountId  path  string  true  "Account ID"
// @Success      200  {object}  creditdomain.Account
// @Router       /credits/{accountId} [get]
func (s *Server) GetAccount(c *gin.Context) {
	accountID, ok := parseID(c, "accountId")
	if !ok {
		return
	}

	account, err := s.creditSvc.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, account)
}

// @Summary      Update Account Settings
// @Tags         credits
// @Accept       json
// @Produce      json
// @Param        accountId  path  string                              true  "Account ID"
// @Param        request    body  creditdomain.UpdateAccountRequest  true  "Settings Patch"
// @Success      200  {object}  creditdomain.Account
// @Router       /credits/{accountId}/settings [patch]
func (s *Server) UpdateAccountSettings(c *gin.Context) {
	accountID, ok := parseID(c, "accountId")
	if !ok {
		return
	}

	var req creditdomain.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, "malformed settings patch")
		return
	}

	account, err := s.creditSvc.UpdateAccountSettings(c.Request.Context(), accountID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, account)
}

// @Summary      Update Credit Rule
// @Description  Toggle or reprice a billable action
// @Tags         credits
// @Accept       json
// @Produce      json
// @Param        accountId  path  string                          true  "Account ID"
// @Param        ruleId     path  string                          true  "Rule ID"
// @Param        request    body  creditdomain.UpdateRuleRequest  true  "Rule Patch"
// @Success      200  {object}  creditdomain.Rule
// @Router       /credits/{accountId}/rules/{ruleId} [post]
func (s *Server) UpdateCreditRule(c *gin.Context) {
	accountID, ok := parseID(c, "accountId")
	if !ok {
		return
	}
	ruleID, ok := parseID(c, "ruleId")
	if !ok {
		return
	}

	var req creditdomain.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, "malformed rule patch")
		return
	}

	rule, err := s.creditSvc.UpdateRule(c.Request.Context(), accountID, ruleID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, rule)
}
