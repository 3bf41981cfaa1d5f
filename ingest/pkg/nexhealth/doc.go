// Package nexhealth holds the wire format of NexHealth webhook deliveries:
// the JSON envelope, the appointment payload, and the HMAC-SHA256
// signature carried in the X-Nexhealth-Signature header.
package nexhealth
