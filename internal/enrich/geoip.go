package enrich

import (
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// GeoIP resolves client IPs to a coarse location for event rows. A nil
// *GeoIP is valid and resolves nothing, so callers can wire it
// unconditionally.
type GeoIP struct {
	city *geoip2.Reader
}

func NewGeoIP(cityPath string) (*GeoIP, error) {
	cityPath = strings.TrimSpace(cityPath)
	if cityPath == "" {
		return nil, nil
	}
	city, err := geoip2.Open(cityPath)
	if err != nil {
		return nil, err
	}
	return &GeoIP{city: city}, nil
}

func (g *GeoIP) Close() error {
	if g == nil || g.city == nil {
		return nil
	}
	return g.city.Close()
}

// Locate returns the ISO country code and English city name for the IP, or
// empty strings when the IP is unparseable or not in the database.
func (g *GeoIP) Locate(ipStr string) (country, city string) {
	if g == nil || g.city == nil {
		return "", ""
	}
	ip := net.ParseIP(strings.TrimSpace(ipStr))
	if ip == nil {
		return "", ""
	}
	rec, err := g.city.City(ip)
	if err != nil {
		return "", ""
	}
	country = rec.Country.IsoCode
	if rec.City.Names != nil {
		city = strings.TrimSpace(rec.City.Names["en"])
	}
	return country, city
}
