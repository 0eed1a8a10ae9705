package server

import (
	teamdomain "github.com/casaflowlabs/casaflow/internal/team/domain"
	"github.com/gin-gonic/gin"
)

// @Summary      List Team
// @Tags         team
// @Produce      json
// @Success      200  {array}  teamdomain.Member
// @Router       /team [get]
func (s *Server) ListTeam(c *gin.Context) {
	members, err := s.teamSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, members)
}

// @Summary      Create Team Member
// @Tags         team
// @Accept       json
// @Produce      json
// @Param        request  body  teamdomain.Member  true  "Member"
// @Success      200  {object}  teamdomain.Member
// @Router       /team [post]
func (s *Server) CreateMember(c *gin.Context) {
	var req teamdomain.Member
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, "malformed member")
		return
	}

	member, err := s.teamSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, member)
}

// @Summary      Pause Agent
// @Description  Exclude an agent from receiving new assignments
// @Tags         team
// @Produce      json
// @Param        id  path  string  true  "Agent ID"
// @Success      200  {object}  teamdomain.Member
// @Router       /team/{id}/pause [post]
func (s *Server) PauseMember(c *gin.Context) {
	member, err := s.teamSvc.SetPaused(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, member)
}

// @Summary      Unpause Agent
// @Tags         team
// @Produce      json
// @Param        id  path  string  true  "Agent ID"
// @Success      200  {object}  teamdomain.Member
// @Router       /team/{id}/unpause [post]
func (s *Server) UnpauseMember(c *gin.Context) {
	member, err := s.teamSvc.SetPaused(c.Request.Context(), c.Param("id"), false)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, member)
}
