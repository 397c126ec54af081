package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-sync-service/internal/models"
	"crm-sync-service/internal/pipedrive"
)

const testWonStage int64 = 5

func testPolicy() models.Policy {
	return models.Policy{
		OID:         555001,
		Number:      "POL-2024-001",
		Currency:    "EUR",
		Premium:     240.50,
		Description: "Toyota Corolla 123ABC",
		EndDate:     time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC),
		InsurerCode: "if",
		ProductCode: "mtpl",
	}
}

func TestUpsert_CreateAssignsOwnerAndKeysByPolicyOID(t *testing.T) {
	crm := newFakeCRM()
	sync := NewDealSynchronizer(crm, identityCodes{}, testWonStage)

	customer := models.Customer{OID: 9001, Name: "Mari Tamm"}
	dealID, created, err := sync.Upsert(context.Background(), testPolicy(), customer, 42, models.EntityKindPerson, models.DealStatusOpen, 777)

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(777), crm.dealOwners[dealID])

	payload := crm.dealPayloads[dealID]
	assert.Equal(t, "555001", payload.CustomFields[pipedrive.FieldPolicyOID])
	assert.Equal(t, "POL-2024-001", payload.CustomFields[pipedrive.FieldPolicyNumber])
	assert.Equal(t, "2024-06-10", payload.CustomFields[pipedrive.FieldEndDate])
	assert.Equal(t, "Mari Tamm POL-2024-001 mtpl", payload.Title)
	assert.Equal(t, int64(42), payload.PersonID)
	assert.Zero(t, payload.OrgID)
}

func TestUpsert_UpdateNeverReassignsOwner(t *testing.T) {
	crm := newFakeCRM()
	sync := NewDealSynchronizer(crm, identityCodes{}, testWonStage)
	customer := models.Customer{OID: 9001, Name: "Mari Tamm"}

	dealID, created, err := sync.Upsert(context.Background(), testPolicy(), customer, 42, models.EntityKindPerson, models.DealStatusOpen, 777)
	require.NoError(t, err)
	require.True(t, created)

	// A CRM user reassigns the deal between runs.
	crm.dealOwners[dealID] = 888

	again, created, err := sync.Upsert(context.Background(), testPolicy(), customer, 42, models.EntityKindPerson, models.DealStatusOpen, 777)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, dealID, again)
	assert.Equal(t, int64(888), crm.dealOwners[dealID], "update must not touch the owner")
	assert.Zero(t, crm.dealPayloads[dealID].OwnerID)
	assert.Equal(t, 1, crm.addDealCalls)
	assert.Equal(t, 1, crm.updateDealCalls)
}

func TestUpsert_WonSetsStageAndNineAMWonTime(t *testing.T) {
	crm := newFakeCRM()
	sync := NewDealSynchronizer(crm, identityCodes{}, testWonStage)

	dealID, _, err := sync.Upsert(context.Background(), testPolicy(), models.Customer{OID: 9001, Name: "Mari Tamm"}, 42, models.EntityKindPerson, models.DealStatusWon, 777)
	require.NoError(t, err)

	payload := crm.dealPayloads[dealID]
	assert.Equal(t, "won", payload.Status)
	assert.Equal(t, testWonStage, payload.StageID)
	assert.Equal(t, "2024-06-10T09:00:00Z", payload.WonTime)
}

func TestUpsert_OpenLeavesWonFieldsEmpty(t *testing.T) {
	crm := newFakeCRM()
	sync := NewDealSynchronizer(crm, identityCodes{}, testWonStage)

	dealID, _, err := sync.Upsert(context.Background(), testPolicy(), models.Customer{OID: 9001, Name: "Mari Tamm"}, 42, models.EntityKindPerson, models.DealStatusOpen, 777)
	require.NoError(t, err)

	payload := crm.dealPayloads[dealID]
	assert.Empty(t, payload.WonTime)
	assert.Zero(t, payload.StageID)
}

func TestUpsert_EnumFieldsUseOptionIDs(t *testing.T) {
	crm := newFakeCRM()
	crm.options[pipedrive.FieldInsurer] = map[string]int64{"if": 31}
	crm.options[pipedrive.FieldProduct] = map[string]int64{"mtpl": 47}
	sync := NewDealSynchronizer(crm, identityCodes{}, testWonStage)

	dealID, _, err := sync.Upsert(context.Background(), testPolicy(), models.Customer{OID: 9001, Name: "Mari Tamm"}, 42, models.EntityKindPerson, models.DealStatusOpen, 777)
	require.NoError(t, err)

	payload := crm.dealPayloads[dealID]
	assert.Equal(t, int64(31), payload.CustomFields[pipedrive.FieldInsurer])
	assert.Equal(t, int64(47), payload.CustomFields[pipedrive.FieldProduct])
}

func TestUpsert_UnknownOptionLabelIsOmitted(t *testing.T) {
	crm := newFakeCRM()
	sync := NewDealSynchronizer(crm, identityCodes{}, testWonStage)

	dealID, _, err := sync.Upsert(context.Background(), testPolicy(), models.Customer{OID: 9001, Name: "Mari Tamm"}, 42, models.EntityKindPerson, models.DealStatusOpen, 777)
	require.NoError(t, err)

	payload := crm.dealPayloads[dealID]
	_, present := payload.CustomFields[pipedrive.FieldInsurer]
	assert.False(t, present, "labels without a matching option must not be sent raw")
}

func TestUpsert_ObjectsFieldIsByteCapped(t *testing.T) {
	crm := newFakeCRM()
	sync := NewDealSynchronizer(crm, identityCodes{}, testWonStage)

	policy := testPolicy()
	policy.Description = strings.Repeat("õ", 300)

	dealID, _, err := sync.Upsert(context.Background(), policy, models.Customer{OID: 9001, Name: "Mari Tamm"}, 42, models.EntityKindPerson, models.DealStatusOpen, 777)
	require.NoError(t, err)

	objects := crm.dealPayloads[dealID].CustomFields[pipedrive.FieldObjects].(string)
	assert.LessOrEqual(t, len(objects), 255)
	assert.Equal(t, strings.Repeat("õ", 127), objects)
}

func TestUpsert_OrganizationCustomerLinksOrgID(t *testing.T) {
	crm := newFakeCRM()
	sync := NewDealSynchronizer(crm, identityCodes{}, testWonStage)

	dealID, _, err := sync.Upsert(context.Background(), testPolicy(), models.Customer{OID: 9100, Name: "Kindlustus OU", Type: models.CustomerTypeCompany}, 55, models.EntityKindOrganization, models.DealStatusOpen, 777)
	require.NoError(t, err)

	payload := crm.dealPayloads[dealID]
	assert.Equal(t, int64(55), payload.OrgID)
	assert.Zero(t, payload.PersonID)
}
