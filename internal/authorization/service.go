// Package authorization checks staff roles against casbin RBAC policies stored in
// the casbin_rule table.
package authorization

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/kinesio/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	RoleAdmin         = "admin"
	RoleReceptionist  = "receptionist"
	RoleKinesiologist = "kinesiologist"
	RoleAccountant    = "accountant"
)

const (
	ObjectInvoice        = "invoice"
	ObjectPatient        = "patient"
	ObjectClinicalRecord = "clinical_record"
	ObjectServicePrice   = "service_price"
	ObjectExpense        = "expense"
	ObjectReport         = "report"
	ObjectAuditLog       = "audit_log"
)

const (
	ActionView    = "view"
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionPay     = "pay"
	ActionCancel  = "cancel"
	ActionExport  = "export"
	ActionDelete  = "delete"
	ActionRestore = "restore"
	ActionPurge   = "purge"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

type Service interface {
	Authorize(ctx context.Context, role, object, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role, object, action string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(subject(role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		logger.WithContext(ctx, s.log).Warn("authorization denied",
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func subject(role string) string {
	return "role:" + role
}

// seedPolicies is idempotent: rules already stored are skipped.
func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{subject(RoleReceptionist), ObjectInvoice, ActionView},
		{subject(RoleReceptionist), ObjectInvoice, ActionCreate},
		{subject(RoleReceptionist), ObjectInvoice, ActionPay},
		{subject(RoleReceptionist), ObjectInvoice, ActionExport},
		{subject(RoleReceptionist), ObjectPatient, ActionView},
		{subject(RoleReceptionist), ObjectPatient, ActionCreate},
		{subject(RoleReceptionist), ObjectServicePrice, ActionView},

		{subject(RoleKinesiologist), ObjectPatient, ActionView},
		{subject(RoleKinesiologist), ObjectPatient, ActionCreate},
		{subject(RoleKinesiologist), ObjectClinicalRecord, ActionView},
		{subject(RoleKinesiologist), ObjectClinicalRecord, ActionCreate},
		{subject(RoleKinesiologist), ObjectInvoice, ActionView},
		{subject(RoleKinesiologist), ObjectServicePrice, ActionView},

		{subject(RoleAccountant), ObjectInvoice, ActionView},
		{subject(RoleAccountant), ObjectInvoice, ActionExport},
		{subject(RoleAccountant), ObjectExpense, ActionView},
		{subject(RoleAccountant), ObjectExpense, ActionCreate},
		{subject(RoleAccountant), ObjectReport, ActionView},
		{subject(RoleAccountant), ObjectReport, ActionExport},
		{subject(RoleAccountant), ObjectServicePrice, ActionView},

		{subject(RoleAdmin), ObjectInvoice, ActionCancel},
		{subject(RoleAdmin), ObjectServicePrice, ActionCreate},
		{subject(RoleAdmin), ObjectServicePrice, ActionUpdate},
		{subject(RoleAdmin), ObjectServicePrice, ActionDelete},
		{subject(RoleAdmin), ObjectPatient, ActionDelete},
		{subject(RoleAdmin), ObjectPatient, ActionRestore},
		{subject(RoleAdmin), ObjectPatient, ActionPurge},
		{subject(RoleAdmin), ObjectAuditLog, ActionView},
	}
	if _, err := enforcer.AddPoliciesEx(policies); err != nil {
		return err
	}

	inherits := [][]string{
		{subject(RoleAdmin), subject(RoleReceptionist)},
		{subject(RoleAdmin), subject(RoleKinesiologist)},
		{subject(RoleAdmin), subject(RoleAccountant)},
	}
	_, err := enforcer.AddGroupingPoliciesEx(inherits)
	return err
}
