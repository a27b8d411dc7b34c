package checkout

import (
	"testing"

	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
)

func TestPaymentResolve(t *testing.T) {
	cases := []struct {
		name    string
		in      Payment
		method  enums.PaymentMethod
		details string
		wantErr bool
	}{
		{name: "card", in: Payment{Method: "card", CardNumber: "4111 1111 1111 4242"}, method: enums.PaymentMethodCard, details: "card ****4242"},
		{name: "alipay", in: Payment{Method: "alipay", Phone: "+86 138-0000-1234"}, method: enums.PaymentMethodAlipay, details: "phone ***1234"},
		{name: "wepay short", in: Payment{Method: "WePay", Phone: "12"}, method: enums.PaymentMethodWePay, details: "phone ***12"},
		{name: "card without number", in: Payment{Method: "card", Phone: "5551234"}, wantErr: true},
		{name: "wallet without phone", in: Payment{Method: "alipay", CardNumber: "4242"}, wantErr: true},
		{name: "unknown", in: Payment{Method: "cash", CardNumber: "4242"}, wantErr: true},
		{name: "missing", in: Payment{}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			method, details, err := tc.in.Resolve()
			if tc.wantErr {
				if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if method != tc.method || details != tc.details {
				t.Fatalf("got %s %q, want %s %q", method, details, tc.method, tc.details)
			}
		})
	}
}
