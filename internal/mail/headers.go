package mail

// Custom metadata headers. These are the only persisted backup metadata and
// part of the durable on-wire contract: values written by any previous client
// generation must keep classifying and restoring.
const (
	HdrID            = "X-smsvault-id"
	HdrAddress       = "X-smsvault-address"
	HdrDataType      = "X-smsvault-datatype"
	HdrType          = "X-smsvault-type"
	HdrDate          = "X-smsvault-date"
	HdrThread        = "X-smsvault-thread"
	HdrRead          = "X-smsvault-read"
	HdrStatus        = "X-smsvault-status"
	HdrProtocol      = "X-smsvault-protocol"
	HdrServiceCenter = "X-smsvault-service_center"
	HdrBackupTime    = "X-smsvault-backup-time"
	HdrVersion       = "X-smsvault-version"
	HdrDuration      = "X-smsvault-duration"

	// Standard headers.
	HdrReferences = "References"
	HdrMessageID  = "Message-Id"
)

// legacyMultimediaMarker is what pre-datatype-header clients wrote into the
// type header for multimedia messages. Classification falls back to it when
// the datatype header is absent.
const legacyMultimediaMarker = "mms"
