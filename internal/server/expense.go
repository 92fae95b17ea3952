package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	expensedomain "github.com/smallbiznis/kinesio/internal/expense/domain"
	"github.com/smallbiznis/kinesio/internal/report"
)

func (s *Server) ListExpenses(c *gin.Context) {
	var req expensedomain.ListRequest
	if month := strings.TrimSpace(c.Query("month")); month != "" {
		from, to, err := report.ParseMonth(month, s.reportSvc.Location())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.From, req.To = &from, &to
	}

	expenses, err := s.expenseSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": expenses})
}

func (s *Server) CreateExpense(c *gin.Context) {
	var req expensedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	e, err := s.expenseSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": e})
}
