package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"invictcrm/pkg/auth"
)

func (s *server) registerHandler(c *gin.Context) {
	var in auth.RegisterInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := s.auth.Register(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *server) loginHandler(c *gin.Context) {
	var in auth.LoginInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := s.auth.Login(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *server) refreshHandler(c *gin.Context) {
	var in refreshRequest
	if !bindJSON(c, &in) {
		return
	}
	res, err := s.auth.Refresh(c.Request.Context(), in.RefreshToken)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *server) logoutHandler(c *gin.Context) {
	var in refreshRequest
	if !bindJSON(c, &in) {
		return
	}
	if err := s.auth.Logout(c.Request.Context(), in.RefreshToken); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *server) authProfileHandler(c *gin.Context) {
	user, err := s.auth.Profile(c.Request.Context(), identity(c).UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
