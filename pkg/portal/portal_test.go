package portal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/Sternrassler/workos-client/internal/testutil"
	"github.com/Sternrassler/workos-client/pkg/client"
	"github.com/rs/zerolog"
)

func newTestService(t *testing.T, mock *testutil.MockAPI) *Service {
	t.Helper()

	logger := zerolog.Nop()
	cfg := client.DefaultConfig("sk_test_123")
	cfg.BaseURL = mock.URL()
	cfg.HTTPClient = mock.Client()
	cfg.Logger = &logger

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	return NewService(c)
}

func TestGenerateLink(t *testing.T) {
	intents := []Intent{
		IntentSSO,
		IntentDSync,
		IntentAuditLogs,
		IntentLogStreams,
		IntentDomainVerification,
		IntentCertificateRenewal,
	}

	for _, intent := range intents {
		t.Run(string(intent), func(t *testing.T) {
			mock := testutil.NewMockAPI()
			defer mock.Close()
			mock.SetResponse("POST /portal/generate_link", testutil.NewJSONResponse(http.StatusCreated,
				`{"link":"https://setup.workos.com/portal/launch?secret=secret"}`))

			svc := newTestService(t, mock)
			link, err := svc.GenerateLink(context.Background(), GenerateLinkOpts{
				Intent:       intent,
				Organization: "org_1",
				ReturnURL:    "https://app.test/settings",
			})
			if err != nil {
				t.Fatalf("GenerateLink() error = %v", err)
			}
			if link != "https://setup.workos.com/portal/launch?secret=secret" {
				t.Errorf("link = %q", link)
			}

			var sent map[string]any
			if err := mock.LastRequest().JSON(&sent); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if sent["intent"] != string(intent) || sent["organization"] != "org_1" || sent["return_url"] != "https://app.test/settings" {
				t.Errorf("body = %v", sent)
			}
			if _, ok := sent["success_url"]; ok {
				t.Error("empty success_url must be omitted")
			}
		})
	}
}

func TestGenerateLink_Unprocessable(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("POST /portal/generate_link", testutil.NewErrorResponse(http.StatusUnprocessableEntity, "req_1",
		`{"errors":[{"field":"intent","code":"invalid_intent"}]}`))

	svc := newTestService(t, mock)
	_, err := svc.GenerateLink(context.Background(), GenerateLinkOpts{Intent: "nope", Organization: "org_1"})
	if !errors.Is(err, client.ErrUnprocessableEntity) {
		t.Fatalf("error = %v, want ErrUnprocessableEntity", err)
	}
}

func TestGenerateLinkOpts_JSONRoundTrip(t *testing.T) {
	in := GenerateLinkOpts{
		Intent:       IntentDomainVerification,
		Organization: "org_1",
		ReturnURL:    "https://app.test/settings",
		SuccessURL:   "https://app.test/settings?done=1",
	}

	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var out GenerateLinkOpts
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch:\n%+v\n%+v", in, out)
	}
}
