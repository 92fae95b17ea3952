package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	servicepricedomain "github.com/smallbiznis/kinesio/internal/serviceprice/domain"
)

func (s *Server) ListServicePrices(c *gin.Context) {
	activeOnly, err := parseOptionalBool(c.Query("activeOnly"))
	if err != nil {
		AbortWithError(c, newValidationError("activeOnly", "invalid_active_only", "invalid activeOnly"))
		return
	}

	prices, err := s.priceSvc.List(c.Request.Context(), servicepricedomain.ListRequest{
		ActiveOnly: activeOnly,
		Category:   c.Query("category"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": prices})
}

func (s *Server) CreateServicePrice(c *gin.Context) {
	var req servicepricedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	price, err := s.priceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": price})
}

func (s *Server) GetServicePrice(c *gin.Context) {
	price, err := s.priceSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": price})
}

func (s *Server) UpdateServicePrice(c *gin.Context) {
	var req servicepricedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	price, err := s.priceSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": price})
}

func (s *Server) DeactivateServicePrice(c *gin.Context) {
	price, err := s.priceSvc.Deactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": price})
}
