package config

type WorkerKeyStruct struct {
	PersistAuditQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAuditQueue: "class_audit_queue",
}
