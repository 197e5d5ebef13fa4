package config

type QueueKeyStruct struct {
	PersistAuditQueue string
}

var QueueKey = &QueueKeyStruct{
	PersistAuditQueue: "persist_audit_queue",
}
