package stripeclient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgmon/entity"
)

type fakeDB struct {
	org   *entity.Organization
	plans map[string]entity.Plan
}

func (f *fakeDB) GetOrganization(_ string) (*entity.Organization, error) {
	if f.org == nil {
		return nil, entity.ErrNotFound
	}
	return f.org, nil
}

func (f *fakeDB) SetOrganizationPlan(tenantId string, plan entity.Plan) error {
	if f.plans == nil {
		f.plans = map[string]entity.Plan{}
	}
	f.plans[tenantId] = plan
	return nil
}

func testClient(db Database) *StripeClient {
	s := &StripeClient{
		webhookSecret: "whsec_test",
		successUrl:    "https://app.example.com/billing/success",
		prices: map[entity.Plan]string{
			entity.PlanPro: "price_pro",
		},
		db:  db,
		log: slog.New(slog.DiscardHandler),
	}
	return s
}

func signedHeader(secret string, payload []byte, at time.Time) string {
	ts := fmt.Sprintf("%d", at.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignature(t *testing.T) {
	s := testClient(&fakeDB{})
	payload := []byte(`{"id":"evt_1"}`)

	header := signedHeader("whsec_test", payload, time.Now())
	assert.True(t, s.VerifySignature(payload, header, 5*time.Minute))

	// wrong secret
	assert.False(t, s.VerifySignature(payload,
		signedHeader("whsec_other", payload, time.Now()), 5*time.Minute))

	// tampered payload
	assert.False(t, s.VerifySignature([]byte(`{"id":"evt_2"}`), header, 5*time.Minute))

	// stale timestamp
	assert.False(t, s.VerifySignature(payload,
		signedHeader("whsec_test", payload, time.Now().Add(-10*time.Minute)), 5*time.Minute))

	// malformed headers
	assert.False(t, s.VerifySignature(payload, "", 5*time.Minute))
	assert.False(t, s.VerifySignature(payload, "t=abc,v1=def", 5*time.Minute))
	assert.False(t, s.VerifySignature(payload, "v1=deadbeef", 5*time.Minute))
}

func TestCreateCheckoutRejectsBadInput(t *testing.T) {
	db := &fakeDB{org: &entity.Organization{Id: "t1", Plan: entity.PlanFree}}
	s := testClient(db)

	// no price configured for enterprise in this fixture
	_, err := s.CreateCheckout("t1", entity.PlanEnterprise)
	assert.Error(t, err)

	// already on the requested plan
	db.org.Plan = entity.PlanPro
	_, err = s.CreateCheckout("t1", entity.PlanPro)
	assert.ErrorIs(t, err, entity.ErrConflict)

	// success url is mandatory
	s.successUrl = ""
	db.org.Plan = entity.PlanFree
	_, err = s.CreateCheckout("t1", entity.PlanPro)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "success url")
}
