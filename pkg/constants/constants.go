package constants

type ContextKey string

const (
	AppKey       ContextKey = "app"
	ParamsKey    ContextKey = "params"
	LoggerKey    ContextKey = "logger"
	PoolKey      ContextKey = "pool"
	TxKey        ContextKey = "tx"
	TenancyKey   ContextKey = "tenancy"
	TenantIDKey  ContextKey = "tenantID"
	PrincipalKey ContextKey = "principal"
	RequestIDKey ContextKey = "requestID"
)
