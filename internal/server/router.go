package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	ordercontroller "aquamart/internal/order/controller"
	paymentcontroller "aquamart/internal/payment/controller"
)

func NewRouter(
	checkoutCtrl *ordercontroller.CheckoutController,
	paymentCtrl *paymentcontroller.PaymentController,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Error("failed to write health response", zap.Error(err))
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/checkout", checkoutCtrl.Checkout)
		r.Post("/payments/ipn", paymentCtrl.HandleIPN)
		r.Get("/payments/{tranId}/status", paymentCtrl.PollStatus)
		r.Post("/orders/{orderId}/refund", paymentCtrl.Refund)
	})

	return r
}
