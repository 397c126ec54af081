package services

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"crm-sync-service/internal/models"
	"crm-sync-service/internal/pipedrive"
	"crm-sync-service/internal/utils"
)

// CRMDealStore is the slice of the CRM client the deal synchronizer needs.
type CRMDealStore interface {
	FindDeal(ctx context.Context, policyOID string) (int64, bool, error)
	AddDeal(ctx context.Context, payload pipedrive.DealPayload) (int64, error)
	UpdateDeal(ctx context.Context, dealID int64, payload pipedrive.DealPayload) error
	ResolveFieldOption(ctx context.Context, fieldKey, label string) (int64, bool, error)
}

// CodeResolver translates coded insurer/product values into display labels.
// Implementations may or may not cache; the synchronizer works with either.
type CodeResolver interface {
	ResolveCode(ctx context.Context, raw, fieldName string) (string, error)
}

// Free-text custom fields cap at 255 bytes on the CRM side.
const customFieldByteLimit = 255

const (
	dateLayout    = "2006-01-02"
	wonTimeLayout = "2006-01-02T15:04:05Z"
)

// DealSynchronizer upserts one deal per source policy, found by the policy's
// stable OID. The owner is assigned at creation only: CRM users reassign
// deals manually and a sync run must never undo that.
type DealSynchronizer struct {
	crm      CRMDealStore
	codes    CodeResolver
	wonStage int64
}

func NewDealSynchronizer(crm CRMDealStore, codes CodeResolver, wonStage int64) *DealSynchronizer {
	return &DealSynchronizer{crm: crm, codes: codes, wonStage: wonStage}
}

// Upsert creates or updates the deal for the policy and returns its CRM id
// and whether it was created on this call.
func (s *DealSynchronizer) Upsert(
	ctx context.Context,
	policy models.Policy,
	customer models.Customer,
	entityID int64,
	kind models.EntityKind,
	status models.DealStatus,
	ownerHint int64,
) (int64, bool, error) {
	payload, err := s.buildPayload(ctx, policy, customer, entityID, kind, status)
	if err != nil {
		return 0, false, err
	}

	policyOID := strconv.FormatInt(policy.OID, 10)
	dealID, found, err := s.crm.FindDeal(ctx, policyOID)
	if err != nil {
		return 0, false, err
	}

	if !found {
		payload.OwnerID = ownerHint
		dealID, err = s.crm.AddDeal(ctx, payload)
		if err != nil {
			return 0, false, err
		}
		return dealID, true, nil
	}

	if err := s.crm.UpdateDeal(ctx, dealID, payload); err != nil {
		return 0, false, err
	}
	return dealID, false, nil
}

func (s *DealSynchronizer) buildPayload(
	ctx context.Context,
	policy models.Policy,
	customer models.Customer,
	entityID int64,
	kind models.EntityKind,
	status models.DealStatus,
) (pipedrive.DealPayload, error) {
	insurerLabel, err := s.codes.ResolveCode(ctx, policy.InsurerCode, "insurer")
	if err != nil {
		return pipedrive.DealPayload{}, err
	}
	productLabel, err := s.codes.ResolveCode(ctx, policy.ProductCode, "product")
	if err != nil {
		return pipedrive.DealPayload{}, err
	}

	endDate := policy.EndDate.Format(dateLayout)

	customFields := map[string]any{
		pipedrive.FieldPolicyOID:    strconv.FormatInt(policy.OID, 10),
		pipedrive.FieldPolicyNumber: policy.Number,
		pipedrive.FieldObjects:      utils.TruncateUTF8(policy.Description, customFieldByteLimit),
		pipedrive.FieldEndDate:      endDate,
	}
	s.setOptionField(ctx, customFields, pipedrive.FieldInsurer, insurerLabel)
	s.setOptionField(ctx, customFields, pipedrive.FieldProduct, productLabel)

	payload := pipedrive.DealPayload{
		Title:             customer.Name + " " + policy.Number + " " + productLabel,
		Currency:          policy.Currency,
		Value:             policy.Premium,
		ExpectedCloseDate: endDate,
		Status:            string(status),
		VisibleTo:         recordVisibility,
		CustomFields:      customFields,
	}

	// Won is one-directional within a run: the won time and stage are set
	// when classification says won, and never cleared otherwise.
	if status == models.DealStatusWon {
		wonAt := policy.EndDate
		payload.WonTime = timeAtNine(wonAt).Format(wonTimeLayout)
		payload.StageID = s.wonStage
	}

	if kind == models.EntityKindOrganization {
		payload.OrgID = entityID
	} else {
		payload.PersonID = entityID
	}

	return payload, nil
}

// timeAtNine pins a won time to 09:00 UTC on the policy's end date.
func timeAtNine(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 9, 0, 0, 0, time.UTC)
}

// setOptionField resolves an enum option id for the label and stores it when
// found; a label with no option is omitted rather than sent raw.
func (s *DealSynchronizer) setOptionField(ctx context.Context, fields map[string]any, key, label string) {
	optionID, found, err := s.crm.ResolveFieldOption(ctx, key, label)
	if err != nil {
		slog.Warn("Failed to resolve custom field option", "field_key", key, "label", label, "error", err)
		return
	}
	if found {
		fields[key] = optionID
	}
}
