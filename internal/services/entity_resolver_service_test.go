package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-sync-service/internal/models"
	"crm-sync-service/internal/pipedrive"
)

const testDefaultOwner int64 = 22609901

func TestResolve_IndividualKeepsValidEmailDropsBadPhone(t *testing.T) {
	crm := newFakeCRM()
	resolver := NewEntityResolver(crm, testDefaultOwner)

	customer := models.Customer{
		OID:   9001,
		Name:  "Mari Tamm",
		Type:  0,
		Email: "a@b.com",
		Phone: "n/a",
	}

	id, kind, err := resolver.Resolve(context.Background(), customer, nil)
	require.NoError(t, err)
	assert.Equal(t, models.EntityKindPerson, kind)

	payload := crm.personPayloads[id]
	require.Len(t, payload.Emails, 1)
	assert.Equal(t, "a@b.com", payload.Emails[0].Value)
	assert.Empty(t, payload.Phones, "unparseable phone must be dropped, not sent")
	assert.Equal(t, "9001", payload.CustomFields[pipedrive.FieldSourceOID])
	assert.Equal(t, testDefaultOwner, payload.OwnerID)
}

func TestResolve_IndividualInvalidEmailOmitted(t *testing.T) {
	crm := newFakeCRM()
	resolver := NewEntityResolver(crm, testDefaultOwner)

	customer := models.Customer{OID: 9002, Name: "Jaan Kask", Email: "not-an-email"}

	id, _, err := resolver.Resolve(context.Background(), customer, nil)
	require.NoError(t, err)
	assert.Empty(t, crm.personPayloads[id].Emails)
}

func TestResolve_CompanyCreatesOrganizationWithAddress(t *testing.T) {
	crm := newFakeCRM()
	resolver := NewEntityResolver(crm, testDefaultOwner)

	customer := models.Customer{OID: 9100, Name: "Kindlustus OU", Type: models.CustomerTypeCompany}
	address := &models.Address{Value: "Tartu mnt 1", Country: "Estonia", PostalCode: "10115"}

	id, kind, err := resolver.Resolve(context.Background(), customer, address)
	require.NoError(t, err)
	assert.Equal(t, models.EntityKindOrganization, kind)

	payload := crm.orgPayloads[id]
	require.NotNil(t, payload.Address)
	assert.Equal(t, "Tartu mnt 1", payload.Address.Value)
	assert.Equal(t, "Estonia", payload.Address.Country)
	assert.NotEmpty(t, payload.AddTime, "creation must stamp add_time")
}

func TestResolve_CompanyWithoutAddressGetsPlaceholder(t *testing.T) {
	crm := newFakeCRM()
	resolver := NewEntityResolver(crm, testDefaultOwner)

	customer := models.Customer{OID: 9101, Name: "Maakler AS", Type: models.CustomerTypeCompany}

	id, _, err := resolver.Resolve(context.Background(), customer, nil)
	require.NoError(t, err)

	payload := crm.orgPayloads[id]
	require.NotNil(t, payload.Address)
	assert.Equal(t, models.AddressPlaceholder, payload.Address.Value)
}

func TestResolve_SecondCallUpdatesInsteadOfDuplicating(t *testing.T) {
	crm := newFakeCRM()
	resolver := NewEntityResolver(crm, testDefaultOwner)

	customer := models.Customer{OID: 9200, Name: "Kindlustus OU", Type: models.CustomerTypeCompany}

	first, _, err := resolver.Resolve(context.Background(), customer, nil)
	require.NoError(t, err)

	customer.Name = "Kindlustus Grupp OU"
	second, _, err := resolver.Resolve(context.Background(), customer, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, crm.orgs, 1)
	assert.Equal(t, "Kindlustus Grupp OU", crm.orgPayloads[first].Name)
}

func TestResolve_BrokerOwnerOverridesDefault(t *testing.T) {
	crm := newFakeCRM()
	resolver := NewEntityResolver(crm, testDefaultOwner)

	customer := models.Customer{OID: 9300, Name: "Liis Saar", BrokerOwnerID: 777}

	id, _, err := resolver.Resolve(context.Background(), customer, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(777), crm.personPayloads[id].OwnerID)
}
