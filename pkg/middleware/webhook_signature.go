package middleware

import (
	"bytes"
	"io"
	"net/http"

	"turfbook/pkg/logger"
	"turfbook/pkg/payment"
)

const WebhookSignatureHeader = "X-Razorpay-Signature"

// WebhookSignature rejects gateway callbacks whose body was not signed with
// the webhook secret. The body is restored for the next handler.
func WebhookSignature(signer *payment.Signer, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signature := r.Header.Get(WebhookSignatureHeader)
			if signature == "" {
				rejectWebhook(w, log, r, "Missing "+WebhookSignatureHeader+" header")
				return
			}

			body, err := readAndRestoreBody(r)
			if err != nil {
				rejectWebhook(w, log, r, "Failed to read request body")
				return
			}

			if !signer.VerifyPayload(body, signature) {
				rejectWebhook(w, log, r, "Invalid webhook signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func rejectWebhook(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Payment webhook verification failed",
		"request_id", RequestID(r),
		"reason", reason,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)
	writeJSONError(w, http.StatusUnauthorized, `{"error":"Unauthorized","code":"UNAUTHORIZED"}`)
}
