package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
)

func (s *Server) ListPaymentMethods(c *gin.Context) {
	items, err := s.refrepo.ListPaymentMethods(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) ListIdentityDocumentTypes(c *gin.Context) {
	items, err := s.refrepo.ListIdentityDocumentTypes(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) ListGenders(c *gin.Context) {
	items, err := s.refrepo.ListGenders(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) ListLocations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": refdomain.LocationEntries()})
}
