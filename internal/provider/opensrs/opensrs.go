// Package opensrs implements the provider capability against the OpenSRS
// reseller API: XML envelopes POSTed over HTTPS, authenticated with an
// MD5 signature header derived from the request body and the API key.
package opensrs

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"domainhub/internal/provider"
)

const (
	liveBaseURL    = "https://rr-n1-tor.opensrs.net:55443"
	sandboxBaseURL = "https://horizon.opensrs.net:55443"
)

type Options struct {
	Username string
	APIKey   string
	Sandbox  bool
	BaseURL  string // overrides mode selection, used in tests
	Timeout  time.Duration
}

type Client struct {
	opts Options
	http *http.Client
}

func New(opts Options) (*Client, error) {
	opts.Username = strings.TrimSpace(opts.Username)
	opts.APIKey = strings.TrimSpace(opts.APIKey)
	if opts.Username == "" || opts.APIKey == "" {
		return nil, fmt.Errorf("opensrs: missing reseller username or api key")
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

func (c *Client) Name() string { return provider.OpenSRS }

// OpenSRS accepts registrations against the reseller's stored contact
// profile, so the contact block is optional.
func (c *Client) RequiresContact() bool { return false }

func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.call(ctx, "GET_BALANCE", "BALANCE", nil)
	return err
}

func (c *Client) LookupDomain(ctx context.Context, fqdn string) (provider.Availability, error) {
	attrs, err := c.call(ctx, "LOOKUP", "DOMAIN", values{"domain": fqdn})
	if err != nil {
		return provider.Availability{}, err
	}
	status := strings.ToLower(attrs.get("status"))
	return provider.Availability{
		Domain:    fqdn,
		Available: status == "available",
		Premium:   attrs.get("is_premium") == "1",
	}, nil
}

func (c *Client) GetPricing(ctx context.Context) (map[string]provider.PriceSet, error) {
	attrs, err := c.call(ctx, "GET_PRICELIST", "DOMAIN", nil)
	if err != nil {
		return nil, err
	}
	list := attrs.child("pricelist")
	if list == nil {
		return nil, &provider.BusinessError{
			Provider: provider.OpenSRS,
			Code:     "malformed",
			Message:  "pricing response missing pricelist block",
		}
	}
	out := make(map[string]provider.PriceSet, len(list.Items))
	for _, item := range list.Items {
		prices := item.Assoc
		if prices == nil {
			continue
		}
		currency := prices.get("currency")
		if currency == "" {
			currency = "USD"
		}
		out[item.Key] = provider.PriceSet{
			Registration: parsePrice(prices.get("registration")),
			Renewal:      parsePrice(prices.get("renewal")),
			Transfer:     parsePrice(prices.get("transfer")),
			WhoisPrivacy: parsePrice(prices.get("privacy")),
			Currency:     currency,
		}
	}
	return out, nil
}

func (c *Client) RegisterDomain(ctx context.Context, req provider.RegistrationRequest) (provider.RegistrationResult, error) {
	v := values{
		"domain":          req.Domain,
		"period":          strconv.Itoa(req.Years),
		"reg_type":        "new",
		"handle":          "process",
		"f_whois_privacy": boolFlag(req.WhoisPrivacy),
	}
	if req.Contact != nil {
		v["contact_set"] = contactSet(req.Contact)
	}
	if len(req.Nameservers) > 0 {
		v["custom_nameservers"] = "1"
		v["nameserver_list"] = nameserverList(req.Nameservers)
	}
	attrs, err := c.call(ctx, "SW_REGISTER", "DOMAIN", v)
	if err != nil {
		return provider.RegistrationResult{}, err
	}
	return provider.RegistrationResult{
		OrderID:  attrs.get("id"),
		Amount:   parsePrice(attrs.get("registration_amount")),
		Currency: "USD",
	}, nil
}

func (c *Client) GetDomainInfo(ctx context.Context, fqdn string) (provider.DomainInfo, error) {
	attrs, err := c.call(ctx, "GET", "DOMAIN", values{"domain": fqdn, "type": "all_info"})
	if err != nil {
		return provider.DomainInfo{}, err
	}
	info := provider.DomainInfo{
		Domain:       fqdn,
		Locked:       attrs.get("lock_state") == "1",
		WhoisPrivacy: strings.EqualFold(attrs.get("whois_privacy_state"), "enabled"),
	}
	if t, err := parseDate(attrs.get("expiredate")); err == nil {
		info.ExpirationDate = t
	}
	if nsList := attrs.child("nameserver_list"); nsList != nil {
		for _, item := range nsList.Items {
			if item.Assoc != nil {
				if name := item.Assoc.get("name"); name != "" {
					info.Nameservers = append(info.Nameservers, name)
				}
			}
		}
	}
	return info, nil
}

func (c *Client) UpdateNameservers(ctx context.Context, fqdn string, nameservers []string) error {
	_, err := c.call(ctx, "ADVANCED_UPDATE_NAMESERVERS", "DOMAIN", values{
		"domain":    fqdn,
		"op_type":   "assign",
		"assign_ns": strings.Join(nameservers, ","),
	})
	return err
}

func (c *Client) SetWhoisPrivacy(ctx context.Context, fqdn string, enabled bool) error {
	state := "disable"
	if enabled {
		state = "enable"
	}
	_, err := c.call(ctx, "MODIFY", "DOMAIN", values{
		"domain":         fqdn,
		"data":           "whois_privacy_state",
		"state":          state,
		"affect_domains": "0",
	})
	return err
}

func (c *Client) SetLock(ctx context.Context, fqdn string, locked bool) error {
	_, err := c.call(ctx, "MODIFY", "DOMAIN", values{
		"domain":         fqdn,
		"data":           "status",
		"lock_state":     boolFlag(locked),
		"affect_domains": "0",
	})
	return err
}

func (c *Client) RenewDomain(ctx context.Context, fqdn string, years int) (time.Time, error) {
	v := values{
		"domain":     fqdn,
		"period":     strconv.Itoa(years),
		"handle":     "process",
		"auto_renew": "0",
	}
	// RENEW requires the current expiration year as a consistency check.
	if info, err := c.GetDomainInfo(ctx, fqdn); err == nil && !info.ExpirationDate.IsZero() {
		v["currentexpirationyear"] = strconv.Itoa(info.ExpirationDate.Year())
	}
	attrs, err := c.call(ctx, "RENEW", "DOMAIN", v)
	if err != nil {
		return time.Time{}, err
	}
	if t, err := parseDate(attrs.get("registration expiration date")); err == nil {
		return t, nil
	}
	if t, err := parseDate(attrs.get("expiredate")); err == nil {
		return t, nil
	}
	return time.Time{}, nil
}

// values is the attribute block of one request. A value is either a string,
// a nested values map, or a []values slice (rendered as a dt_array).
type values map[string]any

func (c *Client) call(ctx context.Context, action, object string, attrs values) (*assoc, error) {
	body := buildEnvelope(action, object, attrs)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL, strings.NewReader(body))
	if err != nil {
		return nil, &provider.TransportError{Provider: provider.OpenSRS, Op: action, Err: err}
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("X-Username", c.opts.Username)
	req.Header.Set("X-Signature", signature(body, c.opts.APIKey))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &provider.TransportError{Provider: provider.OpenSRS, Op: action, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &provider.TransportError{Provider: provider.OpenSRS, Op: action, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &provider.TransportError{
			Provider: provider.OpenSRS,
			Op:       action,
			Err:      fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}

	var envelope opsEnvelope
	if err := xml.Unmarshal(raw, &envelope); err != nil {
		return nil, &provider.TransportError{
			Provider: provider.OpenSRS,
			Op:       action,
			Err:      fmt.Errorf("decode response: %w", err),
		}
	}

	data := &envelope.Body.DataBlock.Assoc
	if data.get("is_success") != "1" {
		code := data.get("response_code")
		msg := data.get("response_text")
		if msg == "" {
			msg = "request failed"
		}
		return nil, &provider.BusinessError{Provider: provider.OpenSRS, Code: code, Message: msg}
	}
	attrsBlock := data.child("attributes")
	if attrsBlock == nil {
		attrsBlock = &assoc{}
	}
	return attrsBlock, nil
}

// signature is md5(md5(body + key) + key), hex-encoded, per the OpenSRS
// authentication scheme.
func signature(body, key string) string {
	inner := md5.Sum([]byte(body + key))
	outer := md5.Sum([]byte(hex.EncodeToString(inner[:]) + key))
	return hex.EncodeToString(outer[:])
}

func buildEnvelope(action, object string, attrs values) string {
	var b strings.Builder
	b.WriteString(`<?xml version='1.0' encoding='UTF-8' standalone='no'?>` + "\n")
	b.WriteString(`<!DOCTYPE OPS_envelope SYSTEM 'ops.dtd'>` + "\n")
	b.WriteString("<OPS_envelope><header><version>0.9</version></header>")
	b.WriteString("<body><data_block><dt_assoc>")
	b.WriteString(`<item key="protocol">XCP</item>`)
	fmt.Fprintf(&b, `<item key="action">%s</item>`, xmlEscape(action))
	fmt.Fprintf(&b, `<item key="object">%s</item>`, xmlEscape(object))
	if len(attrs) > 0 {
		b.WriteString(`<item key="attributes">`)
		writeAssoc(&b, attrs)
		b.WriteString("</item>")
	}
	b.WriteString("</dt_assoc></data_block></body></OPS_envelope>")
	return b.String()
}

func writeAssoc(b *strings.Builder, m values) {
	b.WriteString("<dt_assoc>")
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, `<item key="%s">`, xmlEscape(k))
		switch v := m[k].(type) {
		case string:
			b.WriteString(xmlEscape(v))
		case values:
			writeAssoc(b, v)
		case []values:
			b.WriteString("<dt_array>")
			for i, entry := range v {
				fmt.Fprintf(b, `<item key="%d">`, i)
				writeAssoc(b, entry)
				b.WriteString("</item>")
			}
			b.WriteString("</dt_array>")
		}
		b.WriteString("</item>")
	}
	b.WriteString("</dt_assoc>")
}

func contactSet(c *provider.Contact) values {
	contact := values{
		"first_name":  c.FirstName,
		"last_name":   c.LastName,
		"email":       c.Email,
		"phone":       c.Phone,
		"address1":    c.Address1,
		"address2":    c.Address2,
		"city":        c.City,
		"state":       c.StateProvince,
		"postal_code": c.PostalCode,
		"country":     c.Country,
	}
	// OpenSRS expects the same block for each contact role.
	return values{
		"owner":   contact,
		"admin":   contact,
		"billing": contact,
		"tech":    contact,
	}
}

func nameserverList(nameservers []string) []values {
	out := make([]values, 0, len(nameservers))
	for i, ns := range nameservers {
		out = append(out, values{
			"name":      ns,
			"sortorder": strconv.Itoa(i + 1),
		})
	}
	return out
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
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// Response decoding. OpenSRS nests everything in dt_assoc/dt_array blocks
// of keyed items.

type opsEnvelope struct {
	XMLName xml.Name `xml:"OPS_envelope"`
	Body    struct {
		DataBlock struct {
			Assoc assoc `xml:"dt_assoc"`
		} `xml:"data_block"`
	} `xml:"body"`
}

type assoc struct {
	Items []item `xml:"item"`
}

type item struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
	Assoc *assoc `xml:"dt_assoc"`
	Array *assoc `xml:"dt_array"`
}

func (a *assoc) get(key string) string {
	for _, it := range a.Items {
		if it.Key == key {
			return strings.TrimSpace(it.Value)
		}
	}
	return ""
}

func (a *assoc) child(key string) *assoc {
	for _, it := range a.Items {
		if it.Key != key {
			continue
		}
		if it.Assoc != nil {
			return it.Assoc
		}
		if it.Array != nil {
			return it.Array
		}
	}
	return nil
}

var _ provider.Provider = (*Client)(nil)
