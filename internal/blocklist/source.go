package blocklist

import (
	"net/url"

	"github.com/cockroachdb/errors"
)

// Source is one remote blocklist.
type Source struct {
	Name string
	URL  string
}

// Check validates the source.
func (s Source) Check() error {
	if s.Name == "" {
		return errors.New("source name is not set")
	}
	_, err := parseSourceURL(s.URL)
	return err
}

// parseSourceURL accepts absolute http(s) URLs with a host.
func parseSourceURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
	case "https":
	default:
		return nil, errors.New("unsupported scheme: " + u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("no host in url: " + raw)
	}
	return u, nil
}

var defaultSources = [...]Source{
	{"AdGuard DNS filter", "https://adguardteam.github.io/AdGuardSDNSFilter/Filters/filter.txt"},
	{"AdAway Default Blocklist", "https://adaway.org/hosts.txt"},
	{"Phishing URL Blocklist (PhishTank and OpenPhish)", "https://adguardteam.github.io/HostlistsRegistry/assets/filter_30.txt"},
	{"HaGeZi's Xiaomi Tracker Blocklist", "https://adguardteam.github.io/HostlistsRegistry/assets/filter_60.txt"},
	{"OISD Blocklist Big", "https://big.oisd.nl"},
	{"Malicious URL Blocklist (URLHaus)", "https://adguardteam.github.io/HostlistsRegistry/assets/filter_11.txt"},
	{"Phishing Army", "https://adguardteam.github.io/HostlistsRegistry/assets/filter_18.txt"},
	{"AdGuard DNS filter", "https://adguardteam.github.io/HostlistsRegistry/assets/filter_1.txt"},
	{"AdGuard DNS Popup Hosts filter", "https://adguardteam.github.io/HostlistsRegistry/assets/filter_59.txt"},
	{"AWAvenue Ads Rule", "https://adguardteam.github.io/HostlistsRegistry/assets/filter_53.txt"},
	{"Scam Blocklist by DurableNapkin", "https://adguardteam.github.io/HostlistsRegistry/assets/filter_10.txt"},
	{"Dandelion Sprout's Anti-Malware List", "https://adguardteam.github.io/HostlistsRegistry/assets/filter_12.txt"},
	{"uBlock₀ filters – Badware risks", "https://adguardteam.github.io/HostlistsRegistry/assets/filter_50.txt"},
	{"Steven Black's List", "https://adguardteam.github.io/HostlistsRegistry/assets/filter_33.txt"},
	{"Tv block ad", "https://raw.githubusercontent.com/hkamran80/blocklists/main/smart-tv.txt"},
	{"Hagezi multi pro", "https://raw.githubusercontent.com/hagezi/dns-blocklists/main/adblock/pro.txt"},
	{"HaGeZi's Apple Tracker DNS Blocklist", "https://raw.githubusercontent.com/hagezi/dns-blocklists/main/hosts/native.apple.txt"},
	{"HaGeZi's Windows/Office Tracker DNS Blocklist", "https://raw.githubusercontent.com/hagezi/dns-blocklists/main/adblock/native.winoffice.txt"},
	{"The Block List Project - Ads List (adguard)", "https://blocklistproject.github.io/Lists/adguard/ads-ags.txt"},
	{"Adguard filter Portugal", "https://raw.githubusercontent.com/AdguardTeam/FiltersRegistry/master/filters/filter_9_Spanish/filter.txt"},
	{"The Block List Project - Tracking List (adguard)", "https://blocklistproject.github.io/Lists/adguard/tracking-ags.txt"},
	{"chapeubranco / filtros trackers", "https://codeberg.org/chapeubranco/filtros/raw/branch/master/filtros/filtros-trackers.txt"},
	{"Lista Anti Nónio", "https://raw.githubusercontent.com/brunomiguel/antinonio/refs/heads/master/antinonio-adguard.txt"},
}

// DefaultSources returns a copy of the compiled-in source table.
func DefaultSources() []Source {
	sources := make([]Source, len(defaultSources))
	copy(sources, defaultSources[:])
	return sources
}
