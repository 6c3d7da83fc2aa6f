package service

import (
	"context"
	"errors"
	"net"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/platform/sentinel"
	"clientiq/pkg/tenancy"
	"clientiq/pkg/validation"
)

// hostResolver classifies a normalized host without touching storage.
type hostResolver struct {
	suffix        string
	platformHosts map[string]struct{}
}

func newHostResolver(baseDomain string, platformHosts map[string]struct{}) hostResolver {
	baseDomain = strings.ToLower(strings.TrimSuffix(baseDomain, "."))
	hosts := make(map[string]struct{}, len(platformHosts)+1)
	for h := range platformHosts {
		hosts[strings.ToLower(h)] = struct{}{}
	}
	if len(platformHosts) == 0 {
		hosts[baseDomain] = struct{}{}
	}
	return hostResolver{suffix: "." + baseDomain, platformHosts: hosts}
}

// NormalizeHost strips the port and any trailing dot, and lowercases.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimPrefix(strings.TrimSuffix(host, "]"), "[")
	return strings.ToLower(strings.TrimSuffix(host, "."))
}

// subdomain returns the tenant label for host, or ok=false when the host can
// only be a platform host or nothing at all.
func (r hostResolver) subdomain(host string) (label string, platform, ok bool) {
	if _, isPlatform := r.platformHosts[host]; isPlatform {
		return "", true, true
	}
	label, found := strings.CutSuffix(host, r.suffix)
	if !found || !validation.IsSubdomain(label) {
		return "", false, false
	}
	return label, false, true
}

var errTenantNotFound = dErrors.New(dErrors.CodeNotFound, "tenant not found")

// Resolve maps a Host header to a scope. Platform hosts get tenancy.Platform;
// a known, active subdomain gets its tenant; everything else is not_found.
// There is no fallback from an unknown subdomain to another scope.
func (s *Service) Resolve(ctx context.Context, host string) (_ tenancy.Scope, err error) {
	host = NormalizeHost(host)
	ctx, span := s.tracer.Start(ctx, "tenant.resolve", attribute.String("host", host))
	defer func() { span.End(err) }()

	label, platform, ok := s.resolver.subdomain(host)
	switch {
	case platform:
		s.metrics.ObserveTenantResolution("platform")
		return tenancy.Platform, nil
	case !ok:
		s.metrics.ObserveTenantResolution("not_found")
		return tenancy.Scope{}, errTenantNotFound
	}

	tenant, err := s.tenants.FindByDomain(ctx, label)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.ObserveTenantResolution("not_found")
			return tenancy.Scope{}, errTenantNotFound
		}
		s.metrics.ObserveTenantResolution("error")
		return tenancy.Scope{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve tenant")
	}
	if !tenant.Active {
		s.metrics.ObserveTenantResolution("not_found")
		return tenancy.Scope{}, errTenantNotFound
	}

	s.metrics.ObserveTenantResolution("tenant")
	return tenant.Scope(), nil
}
