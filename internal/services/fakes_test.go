package services

import (
	"context"
	"strings"

	"crm-sync-service/internal/models"
	"crm-sync-service/internal/pipedrive"
)

// fakeCRM is an in-memory stand-in for the CRM client, implementing every
// store interface the services consume.
type fakeCRM struct {
	nextID int64

	orgs           map[string]int64
	orgPayloads    map[int64]pipedrive.OrganizationPayload
	persons        map[string]int64
	personPayloads map[int64]pipedrive.PersonPayload

	deals        map[string]int64
	dealPayloads map[int64]pipedrive.DealPayload
	dealOwners   map[int64]int64

	notes map[int64][]pipedrive.Note

	options       map[string]map[string]int64
	fieldUpdates  map[int64]map[string]any
	statusUpdates map[int64]string
	filters       map[int][]pipedrive.DealSummary

	addDealCalls    int
	updateDealCalls int
	addNoteCalls    int
	updateNoteCalls int
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{
		orgs:           make(map[string]int64),
		orgPayloads:    make(map[int64]pipedrive.OrganizationPayload),
		persons:        make(map[string]int64),
		personPayloads: make(map[int64]pipedrive.PersonPayload),
		deals:          make(map[string]int64),
		dealPayloads:   make(map[int64]pipedrive.DealPayload),
		dealOwners:     make(map[int64]int64),
		notes:          make(map[int64][]pipedrive.Note),
		options:        make(map[string]map[string]int64),
		fieldUpdates:   make(map[int64]map[string]any),
		statusUpdates:  make(map[int64]string),
		filters:        make(map[int][]pipedrive.DealSummary),
	}
}

func (f *fakeCRM) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeCRM) FindOrganization(ctx context.Context, sourceOID string) (int64, bool, error) {
	id, ok := f.orgs[sourceOID]
	return id, ok, nil
}

func (f *fakeCRM) FindPerson(ctx context.Context, sourceOID string) (int64, bool, error) {
	id, ok := f.persons[sourceOID]
	return id, ok, nil
}

func (f *fakeCRM) AddOrganization(ctx context.Context, payload pipedrive.OrganizationPayload) (int64, error) {
	id := f.id()
	f.orgs[payload.CustomFields[pipedrive.FieldSourceOID].(string)] = id
	f.orgPayloads[id] = payload
	return id, nil
}

func (f *fakeCRM) AddPerson(ctx context.Context, payload pipedrive.PersonPayload) (int64, error) {
	id := f.id()
	f.persons[payload.CustomFields[pipedrive.FieldSourceOID].(string)] = id
	f.personPayloads[id] = payload
	return id, nil
}

func (f *fakeCRM) UpdateOrganization(ctx context.Context, orgID int64, payload pipedrive.OrganizationPayload) error {
	f.orgPayloads[orgID] = payload
	return nil
}

func (f *fakeCRM) UpdatePerson(ctx context.Context, personID int64, payload pipedrive.PersonPayload) error {
	f.personPayloads[personID] = payload
	return nil
}

func (f *fakeCRM) FindDeal(ctx context.Context, policyOID string) (int64, bool, error) {
	id, ok := f.deals[policyOID]
	return id, ok, nil
}

func (f *fakeCRM) AddDeal(ctx context.Context, payload pipedrive.DealPayload) (int64, error) {
	f.addDealCalls++
	id := f.id()
	f.deals[payload.CustomFields[pipedrive.FieldPolicyOID].(string)] = id
	f.dealPayloads[id] = payload
	f.dealOwners[id] = payload.OwnerID
	return id, nil
}

func (f *fakeCRM) UpdateDeal(ctx context.Context, dealID int64, payload pipedrive.DealPayload) error {
	f.updateDealCalls++
	f.dealPayloads[dealID] = payload
	if payload.OwnerID != 0 {
		f.dealOwners[dealID] = payload.OwnerID
	}
	return nil
}

func (f *fakeCRM) UpdateDealStatus(ctx context.Context, dealID int64, status string) error {
	f.statusUpdates[dealID] = status
	return nil
}

func (f *fakeCRM) UpdateDealCustomFields(ctx context.Context, dealID int64, fields map[string]any) error {
	f.fieldUpdates[dealID] = fields
	return nil
}

func (f *fakeCRM) ListDealsByFilter(ctx context.Context, filterID int) ([]pipedrive.DealSummary, error) {
	return f.filters[filterID], nil
}

func (f *fakeCRM) ListNotes(ctx context.Context, dealID int64) ([]pipedrive.Note, error) {
	return f.notes[dealID], nil
}

func (f *fakeCRM) AddNote(ctx context.Context, payload pipedrive.NotePayload) (int64, error) {
	f.addNoteCalls++
	id := f.id()
	f.notes[payload.DealID] = append(f.notes[payload.DealID], pipedrive.Note{ID: id, Content: payload.Content})
	return id, nil
}

func (f *fakeCRM) UpdateNote(ctx context.Context, noteID int64, payload pipedrive.NotePayload) error {
	f.updateNoteCalls++
	for dealID, notes := range f.notes {
		for i, note := range notes {
			if note.ID == noteID {
				f.notes[dealID][i].Content = payload.Content
				return nil
			}
		}
	}
	return nil
}

func (f *fakeCRM) ResolveFieldOption(ctx context.Context, fieldKey, label string) (int64, bool, error) {
	id, ok := f.options[fieldKey][strings.ToLower(label)]
	return id, ok, nil
}

// fakeSource is an in-memory source system.
type fakeSource struct {
	ids      []int64
	bundles  map[int64]*models.CustomerBundle
	policies map[int64]*models.Policy
	errs     map[int64]error

	getPolicyCalls map[int64]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		bundles:        make(map[int64]*models.CustomerBundle),
		policies:       make(map[int64]*models.Policy),
		errs:           make(map[int64]error),
		getPolicyCalls: make(map[int64]int),
	}
}

func (f *fakeSource) ListCustomerIDs(ctx context.Context) ([]int64, error) {
	return f.ids, nil
}

func (f *fakeSource) GetCustomerPolicies(ctx context.Context, oid int64) (*models.CustomerBundle, error) {
	f.getPolicyCalls[oid]++
	if err, ok := f.errs[oid]; ok {
		return nil, err
	}
	return f.bundles[oid], nil
}

func (f *fakeSource) GetPolicy(ctx context.Context, policyOID int64) (*models.Policy, error) {
	policy, ok := f.policies[policyOID]
	if !ok {
		return nil, models.NewValidationError("policy", "policy %d not found", policyOID)
	}
	return policy, nil
}

// identityCodes resolves every code to itself.
type identityCodes struct{}

func (identityCodes) ResolveCode(ctx context.Context, raw, fieldName string) (string, error) {
	return raw, nil
}
