package worker

import (
	"github.com/spec-kit/semillero-service/internal/service"
)

// StartAuditWorker registers audit handlers on the event bus.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
