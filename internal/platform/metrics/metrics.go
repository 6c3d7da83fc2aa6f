package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	LoginAttempts       *prometheus.CounterVec
	TokenRefreshes      *prometheus.CounterVec
	AuthFailures        *prometheus.CounterVec
	TenantResolutions   *prometheus.CounterVec
	UsersCreated        prometheus.Counter
	TenantsCreated      prometheus.Counter
	RefreshTokensPurged prometheus.Counter
	CRMWrites           *prometheus.CounterVec
}

// New registers every metric on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers every metric on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clientiq_login_attempts_total",
			Help: "Login attempts labeled by outcome",
		}, []string{"outcome"}),
		TokenRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clientiq_token_refreshes_total",
			Help: "Refresh token exchanges labeled by outcome",
		}, []string{"outcome"}),
		AuthFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clientiq_auth_failures_total",
			Help: "Authentication failures labeled by error code",
		}, []string{"code"}),
		TenantResolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clientiq_tenant_resolutions_total",
			Help: "Host to tenant resolutions labeled by result",
		}, []string{"result"}),
		UsersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "clientiq_users_created_total",
			Help: "Total number of users created",
		}),
		TenantsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "clientiq_tenants_created_total",
			Help: "Total number of tenants provisioned",
		}),
		RefreshTokensPurged: f.NewCounter(prometheus.CounterOpts{
			Name: "clientiq_refresh_tokens_purged_total",
			Help: "Expired or revoked refresh tokens removed by the cleanup worker",
		}),
		CRMWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clientiq_crm_writes_total",
			Help: "CRM record mutations labeled by resource and action",
		}, []string{"resource", "action"}),
	}
}

// The helpers below tolerate a nil receiver so services can run without metrics.

func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRefresh(outcome string) {
	if m == nil {
		return
	}
	m.TokenRefreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementAuthFailures(code string) {
	if m == nil {
		return
	}
	m.AuthFailures.WithLabelValues(code).Inc()
}

func (m *Metrics) ObserveTenantResolution(result string) {
	if m == nil {
		return
	}
	m.TenantResolutions.WithLabelValues(result).Inc()
}

// IncrementUsersCreated increments the users created counter by 1
func (m *Metrics) IncrementUsersCreated() {
	if m == nil {
		return
	}
	m.UsersCreated.Inc()
}

func (m *Metrics) IncrementTenantsCreated() {
	if m == nil {
		return
	}
	m.TenantsCreated.Inc()
}

func (m *Metrics) AddRefreshTokensPurged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RefreshTokensPurged.Add(float64(n))
}

func (m *Metrics) ObserveCRMWrite(resource, action string) {
	if m == nil {
		return
	}
	m.CRMWrites.WithLabelValues(resource, action).Inc()
}
