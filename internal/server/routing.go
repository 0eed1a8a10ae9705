package server

import (
	"net/http"
	"strconv"

	routingdomain "github.com/casaflowlabs/casaflow/internal/routing/domain"
	"github.com/gin-gonic/gin"
)

// @Summary      Match Agent
// @Description  Route an inbound lead to exactly one agent
// @Tags         routing
// @Accept       json
// @Produce      json
// @Param        request body routingdomain.MatchQuery true "Lead Match Query"
// @Success      200  {object}  routingdomain.MatchResult
// @Router       /routing/match [post]
func (s *Server) MatchAgent(c *gin.Context) {
	var query routingdomain.MatchQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		abortInvalid(c, "malformed match query")
		return
	}

	if err := s.quotaSvc.CanRouteLead(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.routingSvc.MatchAgent(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, result)
}

// @Summary      List Routing Rules
// @Tags         routing
// @Produce      json
// @Success      200  {array}  routingdomain.Rule
// @Router       /routing/rules [get]
func (s *Server) ListRules(c *gin.Context) {
	rules, err := s.routingSvc.ListRules(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, rules)
}

// @Summary      Create Routing Rule
// @Tags         routing
// @Accept       json
// @Produce      json
// @Param        request body routingdomain.CreateRuleRequest true "Create Rule Request"
// @Success      200  {object}  routingdomain.Rule
// @Router       /routing/rules [post]
func (s *Server) CreateRule(c *gin.Context) {
	var req routingdomain.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, "malformed rule")
		return
	}

	rule, err := s.routingSvc.AddRule(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, rule)
}

// @Summary      Update Routing Rule
// @Tags         routing
// @Accept       json
// @Produce      json
// @Param        id       path  string  true  "Rule ID"
// @Param        request  body  routingdomain.UpdateRuleRequest  true  "Rule Patch"
// @Success      200  {object}  routingdomain.Rule
// @Router       /routing/rules/{id} [patch]
func (s *Server) UpdateRule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req routingdomain.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, "malformed rule patch")
		return
	}

	rule, err := s.routingSvc.UpdateRule(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, rule)
}

// @Summary      Delete Routing Rule
// @Tags         routing
// @Param        id  path  string  true  "Rule ID"
// @Success      204
// @Router       /routing/rules/{id} [delete]
func (s *Server) DeleteRule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.routingSvc.DeleteRule(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type moveRuleRequest struct {
	Direction routingdomain.MoveDirection `json:"direction"`
}

// @Summary      Move Routing Rule
// @Description  Swap the rule's rank with its neighbor; no-op at boundaries
// @Tags         routing
// @Accept       json
// @Produce      json
// @Param        id       path  string           true  "Rule ID"
// @Param        request  body  moveRuleRequest  true  "Move Request"
// @Success      200  {object}  routingdomain.Rule
// @Router       /routing/rules/{id}/move [post]
func (s *Server) MoveRule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req moveRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, "malformed move request")
		return
	}

	rule, err := s.routingSvc.MoveRule(c.Request.Context(), id, req.Direction)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, rule)
}

// @Summary      Get Routing Settings
// @Tags         routing
// @Produce      json
// @Success      200  {object}  routingdomain.Settings
// @Router       /routing/settings [get]
func (s *Server) GetRoutingSettings(c *gin.Context) {
	settings, err := s.routingSvc.GetSettings(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, settings)
}

type updateSettingsRequest struct {
	Fallback routingdomain.Fallback `json:"fallback"`
}

// @Summary      Update Routing Settings
// @Tags         routing
// @Accept       json
// @Produce      json
// @Param        request  body  updateSettingsRequest  true  "Settings Patch"
// @Success      200  {object}  routingdomain.Settings
// @Router       /routing/settings [patch]
func (s *Server) UpdateRoutingSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, "malformed settings patch")
		return
	}

	settings, err := s.routingSvc.UpdateSettings(c.Request.Context(), req.Fallback)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, settings)
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		abortInvalid(c, "invalid id")
		return 0, false
	}
	return id, true
}
