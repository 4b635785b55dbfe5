package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/meethub/internal/gateway"
	"github.com/iliyamo/meethub/internal/repository"
	"github.com/iliyamo/meethub/internal/service"
)

type fakeGatewayEvents struct {
	payload []byte
	sig     string
	err     error
}

func (f *fakeGatewayEvents) HandleGatewayEvent(_ context.Context, payload []byte, sig string) (service.WebhookResult, error) {
	f.payload, f.sig = payload, sig
	return service.WebhookResult{Outcome: service.OutcomeApplied}, f.err
}

// webhookCtx prepares a delivery and returns a func that runs it through h.
func webhookCtx(body, sig string) func(h *WebhookHandler) (int, map[string]any, error) {
	c, rec := newCtx(http.MethodPost, "/api/webhooks/stripe", body, 0)
	if sig != "" {
		c.Request().Header.Set(SignatureHeader, sig)
	}
	return func(h *WebhookHandler) (int, map[string]any, error) {
		err := h.Stripe(c)
		out := map[string]any{}
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
		return rec.Code, out, err
	}
}

func TestWebhook_Unit(t *testing.T) {
	t.Run("missing signature", func(t *testing.T) {
		ev := &fakeGatewayEvents{}
		run := webhookCtx(`{}`, "")
		code, _, err := run(NewWebhookHandler(ev, quietLogger()))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Nil(t, ev.payload, "service never called")
	})

	t.Run("bad signature", func(t *testing.T) {
		ev := &fakeGatewayEvents{err: fmt.Errorf("%w: no match", service.ErrSignature)}
		run := webhookCtx(`{}`, "t=1,v1=00")
		code, _, err := run(NewWebhookHandler(ev, quietLogger()))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("storage failure asks for a retry", func(t *testing.T) {
		ev := &fakeGatewayEvents{err: errors.New("db down")}
		run := webhookCtx(`{}`, "sig")
		code, _, err := run(NewWebhookHandler(ev, quietLogger()))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, code)
	})

	t.Run("body passed through untouched", func(t *testing.T) {
		ev := &fakeGatewayEvents{}
		body := "{ \"id\" : \"evt_1\" }\n"
		run := webhookCtx(body, "sig")
		code, out, err := run(NewWebhookHandler(ev, quietLogger()))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, out["received"])
		assert.Equal(t, body, string(ev.payload))
		assert.Equal(t, "sig", ev.sig)
	})
}

const webhookSecret = "whsec_handler_test"

func stripeSignature(payload []byte, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(ts + "." + string(payload)))
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func stripeEvent(eventType, ticketID string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","type":%q,"data":{"object":{"id":"cs_1","object":"checkout.session","payment_status":"paid","payment_intent":"pi_1","metadata":{"ticketId":%q}}}}`, eventType, ticketID))
}

// webhookStack wires the real gateway verifier and reconciliation service
// over a sqlmock-backed ticket repository.
func webhookStack(t *testing.T) (*WebhookHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := quietLogger()
	gw := gateway.NewStripe("sk_test_unused", webhookSecret, log)
	rec := service.NewReconciliationService(repository.NewTicketRepo(db), gw, nil, log)
	return NewWebhookHandler(rec, log), mock
}

func TestWebhook_CompletedMarksTicketPaid(t *testing.T) {
	h, mock := webhookStack(t)
	payload := stripeEvent(gateway.EventCheckoutCompleted, "t1")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tickets SET status = ?")).
		WithArgs("PAID", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments SET status = ?")).
		WithArgs("COMPLETED", "pi_1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	// The notification reload may fail without affecting the response.
	mock.ExpectQuery(regexp.QuoteMeta("FROM tickets t")).WillReturnError(errors.New("gone"))

	run := webhookCtx(string(payload), stripeSignature(payload, time.Now()))
	code, out, err := run(h)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["received"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhook_ForgedSignatureTouchesNothing(t *testing.T) {
	h, mock := webhookStack(t)
	payload := stripeEvent(gateway.EventCheckoutCompleted, "t1")
	forged := stripeEvent(gateway.EventCheckoutCompleted, "t2")

	run := webhookCtx(string(forged), stripeSignature(payload, time.Now()))
	code, _, err := run(h)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhook_ExpiredForUnknownTicketIsAcknowledged(t *testing.T) {
	h, mock := webhookStack(t)
	payload := stripeEvent(gateway.EventCheckoutExpired, "t404")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tickets SET status = ?")).
		WithArgs("CANCELLED", "t404").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM tickets WHERE id = ?")).
		WithArgs("t404").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	run := webhookCtx(string(payload), stripeSignature(payload, time.Now()))
	code, _, err := run(h)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhook_StorageFailureIs500(t *testing.T) {
	h, mock := webhookStack(t)
	payload := stripeEvent(gateway.EventCheckoutCompleted, "t1")
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	run := webhookCtx(string(payload), stripeSignature(payload, time.Now()))
	code, out, err := run(h)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal error", out["error"])
}

func TestWebhook_SignedMalformedBodyIsAcknowledged(t *testing.T) {
	h, mock := webhookStack(t)
	payload := []byte(`{"id":"evt_9","object":"event","type":"checkout.session.completed","data":{"object":{"metadata":"nope"}}}`)

	run := webhookCtx(string(payload), stripeSignature(payload, time.Now()))
	code, out, err := run(h)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["received"])
	assert.NoError(t, mock.ExpectationsWereMet(), "no database access")
}
