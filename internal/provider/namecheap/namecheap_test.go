package namecheap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"domainhub/internal/provider"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Options{
		APIUser:  "apiuser",
		APIKey:   "apikey",
		Username: "account",
		ClientIP: "203.0.113.7",
		BaseURL:  srv.URL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func okResponse(inner string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<ApiResponse Status="OK" xmlns="http://api.namecheap.com/xml.response">
<Errors/>
<CommandResponse>%s</CommandResponse>
</ApiResponse>`, inner)
}

// TestLookupDomain verifies availability tracks the Available attribute
// exactly and nothing else.
func TestLookupDomain(t *testing.T) {
	cases := []struct {
		attr      string
		available bool
	}{
		{"true", true},
		{"false", false},
		{"FALSE", false},
	}
	for _, tc := range cases {
		t.Run(tc.attr, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, okResponse(fmt.Sprintf(
					`<DomainCheckResult Domain="taken.com" Available="%s" IsPremiumName="false"/>`, tc.attr)))
			})
			avail, err := c.LookupDomain(context.Background(), "taken.com")
			if err != nil {
				t.Fatalf("LookupDomain: %v", err)
			}
			if avail.Available != tc.available {
				t.Errorf("Available=%q: expected %v, got %v", tc.attr, tc.available, avail.Available)
			}
		})
	}
}

// TestCall_Credentials verifies every request carries the credential and
// command query parameters the API contract requires.
func TestCall_Credentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		for param, want := range map[string]string{
			"ApiUser":  "apiuser",
			"ApiKey":   "apikey",
			"UserName": "account",
			"ClientIp": "203.0.113.7",
			"Command":  "namecheap.domains.check",
		} {
			if got := q.Get(param); got != want {
				t.Errorf("query %s = %q, want %q", param, got, want)
			}
		}
		io.WriteString(w, okResponse(`<DomainCheckResult Domain="x.com" Available="false"/>`))
	})
	if _, err := c.LookupDomain(context.Background(), "x.com"); err != nil {
		t.Fatalf("LookupDomain: %v", err)
	}
}

// TestCall_BusinessError verifies an ERROR envelope maps to a
// BusinessError with the provider's error number and message.
func TestCall_BusinessError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<?xml version="1.0" encoding="utf-8"?>
<ApiResponse Status="ERROR" xmlns="http://api.namecheap.com/xml.response">
<Errors><Error Number="2030280">TLD is not supported</Error></Errors>
</ApiResponse>`)
	})

	_, err := c.LookupDomain(context.Background(), "example.zz")
	var bizErr *provider.BusinessError
	if !errors.As(err, &bizErr) {
		t.Fatalf("expected BusinessError, got: %v", err)
	}
	if bizErr.Code != "2030280" || bizErr.Message != "TLD is not supported" {
		t.Errorf("unexpected code/message: %q / %q", bizErr.Code, bizErr.Message)
	}
}

// TestCall_TransportError verifies HTTP failures are kept distinct from
// provider rejections.
func TestCall_TransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	_, err := c.LookupDomain(context.Background(), "example.com")
	var transportErr *provider.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got: %v", err)
	}
	if !provider.IsRetryable(err) {
		t.Error("transport errors must be retryable")
	}
}

// TestRegisterDomain verifies the contact block is expanded into all four
// roles and the order details are decoded.
func TestRegisterDomain(t *testing.T) {
	contact := &provider.Contact{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Phone:      "+44.2071234567",
		Address1:   "12 Analytical Way",
		City:       "London",
		PostalCode: "EC1A 1AA",
		Country:    "GB",
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		for _, role := range []string{"Registrant", "Tech", "Admin", "AuxBilling"} {
			if got := q.Get(role + "FirstName"); got != "Ada" {
				t.Errorf("%sFirstName = %q, want Ada", role, got)
			}
			if got := q.Get(role + "StateProvince"); got != "NA" {
				t.Errorf("%sStateProvince = %q, want NA fallback", role, got)
			}
		}
		io.WriteString(w, okResponse(
			`<DomainCreateResult Domain="example.com" Registered="true" OrderID="12345" ChargedAmount="10.87"/>`))
	})

	result, err := c.RegisterDomain(context.Background(), provider.RegistrationRequest{
		Domain:  "example.com",
		Years:   1,
		Contact: contact,
	})
	if err != nil {
		t.Fatalf("RegisterDomain: %v", err)
	}
	if result.OrderID != "12345" {
		t.Errorf("OrderID = %q, want 12345", result.OrderID)
	}
	if result.Amount.String() != "10.87" {
		t.Errorf("Amount = %s, want 10.87", result.Amount)
	}
}

// TestRegisterDomain_NoContact verifies registration without a contact is
// rejected before any request is made.
func TestRegisterDomain_NoContact(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be placed without a contact")
	})
	_, err := c.RegisterDomain(context.Background(), provider.RegistrationRequest{Domain: "example.com", Years: 1})
	var bizErr *provider.BusinessError
	if !errors.As(err, &bizErr) {
		t.Fatalf("expected BusinessError, got: %v", err)
	}
}

// TestGetPricing verifies category names map to the right price fields.
func TestGetPricing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, okResponse(`<UserGetPricingResult>
<ProductType Name="DOMAINS">
<ProductCategory Name="register">
<Product Name="com"><Price Duration="1" DurationType="YEAR" Price="10.98" Currency="USD"/></Product>
</ProductCategory>
<ProductCategory Name="renew">
<Product Name="com"><Price Duration="1" DurationType="YEAR" Price="12.98" Currency="USD"/></Product>
</ProductCategory>
</ProductType>
</UserGetPricingResult>`))
	})

	pricing, err := c.GetPricing(context.Background())
	if err != nil {
		t.Fatalf("GetPricing: %v", err)
	}
	com, ok := pricing["com"]
	if !ok {
		t.Fatalf("missing .com entry: %v", pricing)
	}
	if com.Registration.String() != "10.98" || com.Renewal.String() != "12.98" {
		t.Errorf("unexpected .com prices: %+v", com)
	}
}

// TestRenewDomain verifies the renewal expiry date is parsed from the
// provider's MM/DD/YYYY format.
func TestRenewDomain(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, okResponse(`<DomainRenewResult Renew="true">
<DomainDetails><ExpiredDate>05/01/2027</ExpiredDate></DomainDetails>
</DomainRenewResult>`))
	})

	expiry, err := c.RenewDomain(context.Background(), "example.com", 1)
	if err != nil {
		t.Fatalf("RenewDomain: %v", err)
	}
	if expiry.Format("2006-01-02") != "2027-05-01" {
		t.Errorf("expected expiry 2027-05-01, got %s", expiry)
	}
}
