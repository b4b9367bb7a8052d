package http

import (
	"time"

	"github.com/zeyuan/appeal-service/internal/appeal"
	"github.com/zeyuan/appeal-service/internal/auth"
	"github.com/zeyuan/appeal-service/internal/kb"
	"github.com/zeyuan/appeal-service/internal/ledger"
	"github.com/zeyuan/appeal-service/internal/poa"
	"github.com/zeyuan/appeal-service/internal/settings"
	"github.com/zeyuan/appeal-service/internal/stats"
	"github.com/zeyuan/appeal-service/internal/sysconfig"
	"github.com/zeyuan/appeal-service/internal/users"
	"gorm.io/gorm"
)

// Services bundles the collaborators the route groups are built from.
type Services struct {
	DB       *gorm.DB
	Auth     *auth.Service
	Appeals  *appeal.Service
	Ledger   *ledger.Service
	Users    *users.Service
	KB       *kb.Service
	POA      *poa.Service
	Config   *sysconfig.Service
	Settings *settings.Store
	Stats    *stats.Service
	Broker   Subscriber
	Location *time.Location // Renders export file names and timestamps.
}
