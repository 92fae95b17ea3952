package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/kinesio/internal/authorization"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) GetIVAReport(c *gin.Context) {
	month := strings.TrimSpace(c.Query("month"))

	switch strings.ToLower(strings.TrimSpace(c.Query("format"))) {
	case "", "json":
		summary, err := s.reportSvc.MonthlyIVA(c.Request.Context(), month)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": summary})
	case "excel", "xlsx":
		if err := s.authorizeContext(c, authorization.ObjectReport, authorization.ActionExport); err != nil {
			AbortWithError(c, err)
			return
		}
		data, filename, err := s.reportSvc.ExportMonthlyIVA(c.Request.Context(), month)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Header("Content-Disposition", attachmentHeader(filename))
		c.Data(http.StatusOK, xlsxContentType, data)
	default:
		AbortWithError(c, newValidationError("format", "invalid_format", "format must be json or excel"))
	}
}
