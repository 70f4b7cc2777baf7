// Package namecheap implements the provider capability against the
// NameCheap API: GET requests carrying credentials and the command in
// query parameters, XML responses wrapped in an ApiResponse envelope.
package namecheap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"domainhub/internal/provider"
)

const (
	liveBaseURL    = "https://api.namecheap.com/xml.response"
	sandboxBaseURL = "https://api.sandbox.namecheap.com/xml.response"
)

type Options struct {
	APIUser  string
	APIKey   string
	Username string
	ClientIP string
	Sandbox  bool
	BaseURL  string // overrides mode selection, used in tests
	Timeout  time.Duration
}

type Client struct {
	opts Options
	http *http.Client
}

func New(opts Options) (*Client, error) {
	opts.APIUser = strings.TrimSpace(opts.APIUser)
	opts.APIKey = strings.TrimSpace(opts.APIKey)
	if opts.APIUser == "" || opts.APIKey == "" {
		return nil, fmt.Errorf("namecheap: missing api user or api key")
	}
	if opts.Username == "" {
		opts.Username = opts.APIUser
	}
	if opts.BaseURL == "" {
		if opts.Sandbox {
			opts.BaseURL = sandboxBaseURL
		} else {
			opts.BaseURL = liveBaseURL
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		opts: opts,
		http: &http.Client{Timeout: opts.Timeout},
	}, nil
}

func (c *Client) Name() string { return provider.NameCheap }

// NameCheap rejects registrations without a full registrant block, so the
// contact requirement is enforced locally before any call is placed.
func (c *Client) RequiresContact() bool { return true }

func (c *Client) TestConnection(ctx context.Context) error {
	var out struct{}
	return c.call(ctx, "namecheap.users.getBalances", nil, &out)
}

func (c *Client) LookupDomain(ctx context.Context, fqdn string) (provider.Availability, error) {
	var result struct {
		Check []struct {
			Domain    string `xml:"Domain,attr"`
			Available string `xml:"Available,attr"`
			Premium   string `xml:"IsPremiumName,attr"`
		} `xml:"DomainCheckResult"`
	}
	err := c.call(ctx, "namecheap.domains.check", url.Values{"DomainList": {fqdn}}, &result)
	if err != nil {
		return provider.Availability{}, err
	}
	if len(result.Check) == 0 {
		return provider.Availability{}, &provider.BusinessError{
			Provider: provider.NameCheap,
			Code:     "malformed",
			Message:  "check response contained no results",
		}
	}
	first := result.Check[0]
	return provider.Availability{
		Domain:    fqdn,
		Available: strings.EqualFold(first.Available, "true"),
		Premium:   strings.EqualFold(first.Premium, "true"),
	}, nil
}

func (c *Client) GetPricing(ctx context.Context) (map[string]provider.PriceSet, error) {
	var result struct {
		ProductTypes []struct {
			Name       string `xml:"Name,attr"`
			Categories []struct {
				Name     string `xml:"Name,attr"`
				Products []struct {
					Name   string `xml:"Name,attr"`
					Prices []struct {
						Duration     string `xml:"Duration,attr"`
						DurationType string `xml:"DurationType,attr"`
						Price        string `xml:"Price,attr"`
						Currency     string `xml:"Currency,attr"`
					} `xml:"Price"`
				} `xml:"Product"`
			} `xml:"ProductCategory"`
		} `xml:"UserGetPricingResult>ProductType"`
	}
	err := c.call(ctx, "namecheap.users.getPricing", url.Values{"ProductType": {"DOMAIN"}}, &result)
	if err != nil {
		return nil, err
	}

	out := make(map[string]provider.PriceSet)
	for _, pt := range result.ProductTypes {
		if !strings.EqualFold(pt.Name, "domains") && !strings.EqualFold(pt.Name, "domain") {
			continue
		}
		for _, cat := range pt.Categories {
			for _, product := range cat.Products {
				tld := strings.ToLower(strings.TrimPrefix(product.Name, "."))
				if tld == "" {
					continue
				}
				var price decimal.Decimal
				currency := "USD"
				for _, p := range product.Prices {
					if p.Duration == "1" && strings.EqualFold(p.DurationType, "YEAR") {
						price = parsePrice(p.Price)
						if p.Currency != "" {
							currency = p.Currency
						}
						break
					}
				}
				set := out[tld]
				if set.Currency == "" {
					set.Currency = currency
				}
				switch strings.ToLower(cat.Name) {
				case "register":
					set.Registration = price
				case "renew":
					set.Renewal = price
				case "transfer":
					set.Transfer = price
				case "whoisguard":
					set.WhoisPrivacy = price
				default:
					continue
				}
				out[tld] = set
			}
		}
	}
	return out, nil
}

func (c *Client) RegisterDomain(ctx context.Context, req provider.RegistrationRequest) (provider.RegistrationResult, error) {
	if req.Contact == nil {
		return provider.RegistrationResult{}, &provider.BusinessError{
			Provider: provider.NameCheap,
			Code:     "2030280",
			Message:  "registrant contact information is required",
		}
	}
	params := url.Values{
		"DomainName": {req.Domain},
		"Years":      {strconv.Itoa(req.Years)},
	}
	for _, role := range []string{"Registrant", "Tech", "Admin", "AuxBilling"} {
		addContact(params, role, req.Contact)
	}
	if len(req.Nameservers) > 0 {
		params.Set("Nameservers", strings.Join(req.Nameservers, ","))
	}
	if req.WhoisPrivacy {
		params.Set("AddFreeWhoisguard", "yes")
		params.Set("WGEnabled", "yes")
	}

	var result struct {
		Create struct {
			Domain        string `xml:"Domain,attr"`
			Registered    string `xml:"Registered,attr"`
			OrderID       string `xml:"OrderID,attr"`
			ChargedAmount string `xml:"ChargedAmount,attr"`
		} `xml:"DomainCreateResult"`
	}
	if err := c.call(ctx, "namecheap.domains.create", params, &result); err != nil {
		return provider.RegistrationResult{}, err
	}
	if !strings.EqualFold(result.Create.Registered, "true") {
		return provider.RegistrationResult{}, &provider.BusinessError{
			Provider: provider.NameCheap,
			Code:     "not_registered",
			Message:  fmt.Sprintf("provider did not register %s", req.Domain),
		}
	}
	return provider.RegistrationResult{
		OrderID:  result.Create.OrderID,
		Amount:   parsePrice(result.Create.ChargedAmount),
		Currency: "USD",
	}, nil
}

func (c *Client) GetDomainInfo(ctx context.Context, fqdn string) (provider.DomainInfo, error) {
	var result struct {
		Info struct {
			Details struct {
				ExpiredDate string `xml:"ExpiredDate"`
			} `xml:"DomainDetails"`
			Whoisguard struct {
				Enabled string `xml:"Enabled,attr"`
			} `xml:"Whoisguard"`
			DNSDetails struct {
				Nameservers []string `xml:"Nameserver"`
			} `xml:"DnsDetails"`
		} `xml:"DomainGetInfoResult"`
	}
	if err := c.call(ctx, "namecheap.domains.getInfo", url.Values{"DomainName": {fqdn}}, &result); err != nil {
		return provider.DomainInfo{}, err
	}
	info := provider.DomainInfo{
		Domain:       fqdn,
		WhoisPrivacy: strings.EqualFold(result.Info.Whoisguard.Enabled, "true"),
		Nameservers:  result.Info.DNSDetails.Nameservers,
	}
	if t, err := parseDate(result.Info.Details.ExpiredDate); err == nil {
		info.ExpirationDate = t
	}
	return info, nil
}

func (c *Client) UpdateNameservers(ctx context.Context, fqdn string, nameservers []string) error {
	sld, tld, err := splitDomain(fqdn)
	if err != nil {
		return err
	}
	var out struct{}
	return c.call(ctx, "namecheap.domains.dns.setCustom", url.Values{
		"SLD":         {sld},
		"TLD":         {tld},
		"Nameservers": {strings.Join(nameservers, ",")},
	}, &out)
}

func (c *Client) SetWhoisPrivacy(ctx context.Context, fqdn string, enabled bool) error {
	command := "namecheap.whoisguard.disable"
	if enabled {
		command = "namecheap.whoisguard.enable"
	}
	var out struct{}
	return c.call(ctx, command, url.Values{"DomainName": {fqdn}}, &out)
}

func (c *Client) SetLock(ctx context.Context, fqdn string, locked bool) error {
	action := "UNLOCK"
	if locked {
		action = "LOCK"
	}
	var out struct{}
	return c.call(ctx, "namecheap.domains.setRegistrarLock", url.Values{
		"DomainName": {fqdn},
		"LockAction": {action},
	}, &out)
}

func (c *Client) RenewDomain(ctx context.Context, fqdn string, years int) (time.Time, error) {
	var result struct {
		Renew struct {
			Renewed     string `xml:"Renew,attr"`
			ExpiredDate string `xml:"DomainDetails>ExpiredDate"`
		} `xml:"DomainRenewResult"`
	}
	err := c.call(ctx, "namecheap.domains.renew", url.Values{
		"DomainName": {fqdn},
		"Years":      {strconv.Itoa(years)},
	}, &result)
	if err != nil {
		return time.Time{}, err
	}
	if t, err := parseDate(result.Renew.ExpiredDate); err == nil {
		return t, nil
	}
	return time.Time{}, nil
}

// apiResponse is the outer envelope common to every NameCheap command.
type apiResponse struct {
	XMLName xml.Name `xml:"ApiResponse"`
	Status  string   `xml:"Status,attr"`
	Errors  struct {
		Errors []struct {
			Number  string `xml:"Number,attr"`
			Message string `xml:",chardata"`
		} `xml:"Error"`
	} `xml:"Errors"`
	CommandResponse innerXML `xml:"CommandResponse"`
}

type innerXML struct {
	Raw []byte `xml:",innerxml"`
}

func (c *Client) call(ctx context.Context, command string, params url.Values, out any) error {
	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("ApiUser", c.opts.APIUser)
	q.Set("ApiKey", c.opts.APIKey)
	q.Set("UserName", c.opts.Username)
	q.Set("ClientIp", c.opts.ClientIP)
	q.Set("Command", command)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return &provider.TransportError{Provider: provider.NameCheap, Op: command, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &provider.TransportError{Provider: provider.NameCheap, Op: command, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &provider.TransportError{Provider: provider.NameCheap, Op: command, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &provider.TransportError{
			Provider: provider.NameCheap,
			Op:       command,
			Err:      fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}

	var envelope apiResponse
	if err := xml.Unmarshal(raw, &envelope); err != nil {
		return &provider.TransportError{
			Provider: provider.NameCheap,
			Op:       command,
			Err:      fmt.Errorf("decode response: %w", err),
		}
	}
	if !strings.EqualFold(envelope.Status, "OK") {
		code, msg := "unknown", "request failed"
		if len(envelope.Errors.Errors) > 0 {
			code = envelope.Errors.Errors[0].Number
			msg = strings.TrimSpace(envelope.Errors.Errors[0].Message)
		}
		return &provider.BusinessError{Provider: provider.NameCheap, Code: code, Message: msg}
	}

	if out == nil || len(envelope.CommandResponse.Raw) == 0 {
		return nil
	}
	wrapped := "<CommandResponse>" + string(envelope.CommandResponse.Raw) + "</CommandResponse>"
	if err := xml.Unmarshal([]byte(wrapped), out); err != nil {
		return &provider.TransportError{
			Provider: provider.NameCheap,
			Op:       command,
			Err:      fmt.Errorf("decode command response: %w", err),
		}
	}
	return nil
}

func addContact(params url.Values, role string, c *provider.Contact) {
	params.Set(role+"FirstName", c.FirstName)
	params.Set(role+"LastName", c.LastName)
	params.Set(role+"EmailAddress", c.Email)
	params.Set(role+"Phone", c.Phone)
	params.Set(role+"Address1", c.Address1)
	if c.Address2 != "" {
		params.Set(role+"Address2", c.Address2)
	}
	params.Set(role+"City", c.City)
	params.Set(role+"StateProvince", orDefault(c.StateProvince, "NA"))
	params.Set(role+"PostalCode", c.PostalCode)
	params.Set(role+"Country", c.Country)
}

func splitDomain(fqdn string) (sld, tld string, err error) {
	parts := strings.SplitN(fqdn, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("namecheap: invalid domain %q", fqdn)
	}
	return parts[0], parts[1], nil
}

func parsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range []string{"01/02/2006", "2006-01-02", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

var _ provider.Provider = (*Client)(nil)
