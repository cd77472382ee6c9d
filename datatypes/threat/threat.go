package threat

import (
	"fmt"
	"sort"
	"strings"
)

type (
	//Indicator is a single threat indicator as returned by the backend.
	//Value holds the URL, hash, domain or IP literal
	Indicator struct {
		Value string `json:"value" yaml:"value"`
	}

	//Record is the full indicator row served by the recent threats feed.
	//Timestamp and ListingReason are empty when the backend has none
	Record struct {
		ID            int    `json:"id"`
		Type          string `json:"type"`
		Value         string `json:"value"`
		Source        string `json:"source"`
		Timestamp     string `json:"timestamp"`
		ListingReason string `json:"listing_reason"`
	}

	//Location is the geocoded position of an IP indicator. Lat and Lon are
	//nil when the lookup found nothing
	Location struct {
		IP  string   `json:"ip"`
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	}

	//SourceCount holds the number of indicators a feed source contributed
	SourceCount struct {
		Source string `json:"source"`
		Count  int    `json:"count"`
	}

	//Labels holds the human facing strings for a Kind
	Labels struct {
		Title    string // "URL Threats"
		Singular string // "URL"
		Prompt   string // shown by browse before reading a command
	}

	//Kind describes one family of indicators served by the backend
	Kind struct {
		Name          string
		Endpoint      string
		CountEndpoint string
		CountField    string
		Labels        Labels
	}
)

// Built in kinds. Endpoints mirror the backend routes
var (
	URL = Kind{
		Name:          "url",
		Endpoint:      "/threat_urls",
		CountEndpoint: "/threat_url_count",
		CountField:    "url_count",
		Labels: Labels{
			Title:    "URL Threats",
			Singular: "URL",
			Prompt:   "Search for a URL",
		},
	}

	Hash = Kind{
		Name:          "hash",
		Endpoint:      "/threat_hashes",
		CountEndpoint: "/threat_hash_count",
		CountField:    "hash_count",
		Labels: Labels{
			Title:    "Hash Threats",
			Singular: "hash",
			Prompt:   "Search for a hash",
		},
	}

	Domain = Kind{
		Name:          "domain",
		Endpoint:      "/threat_domains",
		CountEndpoint: "/threat_domain_count",
		CountField:    "domain_count",
		Labels: Labels{
			Title:    "Domain Threats",
			Singular: "domain",
			Prompt:   "Search for a domain",
		},
	}

	IP = Kind{
		Name:          "ip",
		Endpoint:      "/threat_ips",
		CountEndpoint: "/threat_ip_count",
		CountField:    "ip_count",
		Labels: Labels{
			Title:    "IP Threats",
			Singular: "IP",
			Prompt:   "Search for an IP address",
		},
	}
)

var builtin = map[string]Kind{
	URL.Name:    URL,
	Hash.Name:   Hash,
	Domain.Name: Domain,
	IP.Name:     IP,
}

//ErrUnknownKind is returned by Lookup for names that are not built in
type ErrUnknownKind string

func (e ErrUnknownKind) Error() string {
	return fmt.Sprintf("unknown threat kind %q (expected one of %s)", string(e), strings.Join(Names(), ", "))
}

//Lookup returns the built in Kind with the given name
func Lookup(name string) (Kind, error) {
	kind, ok := builtin[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Kind{}, ErrUnknownKind(name)
	}
	return kind, nil
}

//Names lists the built in kind names in sorted order
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

//LoadFailedMessage is the single human readable message shown when
//indicators of this kind could not be fetched
func (k Kind) LoadFailedMessage() string {
	return fmt.Sprintf("Failed to load %s threats.", k.Labels.Singular)
}

//Values flattens a slice of indicators into their literal values
func Values(indicators []Indicator) []string {
	values := make([]string, len(indicators))
	for i := range indicators {
		values[i] = indicators[i].Value
	}
	return values
}
