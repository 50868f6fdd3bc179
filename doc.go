// Package mailer composes mail messages once and dispatches them through
// interchangeable delivery backends without changing call sites.
//
// Two drivers are available. The "mail" driver submits each recipient
// separately through a local Submitter. The "swift" driver renders a
// go-mail message and hands it, with all recipients, to one transport
// selected by protocol: simple, sendmail, smtp or postfix. API relays
// (AWS SES, SendGrid, Mailgun) are supplied as prebuilt transports.
//
// # Basic Usage
//
//	m, err := mailer.Create(mailer.DriverSwift, mailer.ProtocolSMTP, mailer.DefaultConfig(),
//		mailer.WithSMTP("smtp.example.com", 587),
//		mailer.WithEncryption("tls"),
//		mailer.WithSMTPAuth("user", "secret"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	msg, err := m.Compose(mailer.Draft{
//		From:    "noreply@example.com",
//		To:      []string{"user@example.com"},
//		Subject: "Welcome",
//		Body:    "Welcome!",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := m.Dispatch(context.Background(), msg)
//	// res.Sent, res.Failed
//
// # Errors
//
// Every error can be classified with errors.Is against ErrUnknownDriver,
// ErrUnsupportedProtocol, ErrTransportConfig, ErrInvalidMessage,
// ErrDispatch, ErrCompose or ErrInvalidConfiguration. Recipient-level
// failures are never errors; they are listed in DispatchResult.Failed.
//
// Delivery is synchronous. There is no queueing and no retry.
package mailer
