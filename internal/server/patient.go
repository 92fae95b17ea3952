package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	patientdomain "github.com/smallbiznis/kinesio/internal/patient/domain"
	"github.com/smallbiznis/kinesio/pkg/db/pagination"
)

type listPatientsQuery struct {
	Query          string `form:"q"`
	IncludeDeleted string `form:"includeDeleted"`
	PageToken      string `form:"page_token"`
	PageSize       int    `form:"page_size"`
}

func (s *Server) CreatePatient(c *gin.Context) {
	var req patientdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	p, err := s.patientSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": p})
}

func (s *Server) ListPatients(c *gin.Context) {
	var query listPatientsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	includeDeleted, err := parseOptionalBool(query.IncludeDeleted)
	if err != nil {
		AbortWithError(c, newValidationError("includeDeleted", "invalid_include_deleted", "invalid includeDeleted"))
		return
	}

	resp, err := s.patientSvc.List(c.Request.Context(), patientdomain.ListRequest{
		Query:          strings.TrimSpace(query.Query),
		IncludeDeleted: includeDeleted,
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Patients, "page_info": resp.PageInfo})
}

func (s *Server) GetPatient(c *gin.Context) {
	includeDeleted, err := parseOptionalBool(c.Query("includeDeleted"))
	if err != nil {
		AbortWithError(c, newValidationError("includeDeleted", "invalid_include_deleted", "invalid includeDeleted"))
		return
	}

	p, err := s.patientSvc.Get(c.Request.Context(), patientdomain.GetRequest{
		ID:             c.Param("id"),
		IncludeDeleted: includeDeleted,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": p})
}

func (s *Server) SoftDeletePatient(c *gin.Context) {
	p, err := s.patientSvc.SoftDelete(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	unlockAt, _ := s.patientSvc.RetentionUnlockAt(*p)
	c.JSON(http.StatusOK, gin.H{"data": p, "retention_until": unlockAt})
}

func (s *Server) RestorePatient(c *gin.Context) {
	p, err := s.patientSvc.Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": p})
}

func (s *Server) PurgePatient(c *gin.Context) {
	if err := s.patientSvc.HardDelete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListClinicalRecords(c *gin.Context) {
	records, err := s.patientSvc.ListClinicalRecords(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (s *Server) AddClinicalRecord(c *gin.Context) {
	var req patientdomain.AddRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.PatientID = c.Param("id")

	record, err := s.patientSvc.AddClinicalRecord(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": record})
}
