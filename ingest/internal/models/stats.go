package models

import "time"

// DeliveryStats counts webhook deliveries seen by this process.
type DeliveryStats struct {
	TotalDeliveries int64     `json:"total_deliveries"`
	TotalBytes      int64     `json:"total_bytes"`
	Scheduled       int64     `json:"scheduled"`
	Ignored         int64     `json:"ignored"`
	Duplicates      int64     `json:"duplicates"`
	Rejected        int64     `json:"rejected"`
	Failed          int64     `json:"failed"`
	LastDelivery    time.Time `json:"last_delivery,omitempty"`
}
