package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveContractCall(t *testing.T) {
	before := testutil.ToFloat64(contractCalls.WithLabelValues("ExampleNFT", "ownerOf", ModeRead, "error"))
	ObserveContractCall("ExampleNFT", "ownerOf", ModeRead, errors.New("reverted"), 10*time.Millisecond)
	after := testutil.ToFloat64(contractCalls.WithLabelValues("ExampleNFT", "ownerOf", ModeRead, "error"))
	assert.Equal(t, before+1, after)
}

func TestObserveRebind(t *testing.T) {
	before := testutil.ToFloat64(rebinds.WithLabelValues("ExampleNFT", "signer"))
	ObserveRebind("ExampleNFT", "signer")
	assert.Equal(t, before+1, testutil.ToFloat64(rebinds.WithLabelValues("ExampleNFT", "signer")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveHTTPRequest("binding", http.MethodGet, http.StatusOK, time.Millisecond)
	ObserveRelayedEvent("ExampleNFT", "Transfer", nil)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "scaffold_http_requests_total")
	assert.Contains(t, body, "scaffold_events_relayed_total")
}

func TestStartServerRequiresAddress(t *testing.T) {
	assert.Error(t, StartServer(t.Context(), ""))
}
