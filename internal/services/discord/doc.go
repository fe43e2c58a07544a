// Package discord posts webhook messages, optionally with a GIF preview
// attached as multipart form data. Delivery failures never fail a job; the
// caller decides how loudly to log them.
package discord
