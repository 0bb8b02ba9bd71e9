// Package delivery hands a finished document to the traveler: a copy on local
// disk and an email with the PDF attached. The two channels are independent.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"

	"go.uber.org/zap"

	"luxe/apperr"
	"luxe/logging"
	"luxe/models"
)

// Report records the outcome of each channel. Both are always attempted.
type Report struct {
	SavedPath string
	SaveErr   error
	Emailed   bool
	EmailErr  error
}

// Err joins the channel failures, nil when both succeeded.
func (r Report) Err() error {
	return errors.Join(r.SaveErr, r.EmailErr)
}

func (r Report) MarshalJSON() ([]byte, error) {
	out := struct {
		SavedPath string `json:"saved_path,omitempty"`
		SaveError string `json:"save_error,omitempty"`
		Emailed   bool   `json:"emailed"`
		EmailErr  string `json:"email_error,omitempty"`
	}{SavedPath: r.SavedPath, Emailed: r.Emailed}
	if r.SaveErr != nil {
		out.SaveError = r.SaveErr.Error()
	}
	if r.EmailErr != nil {
		out.EmailErr = r.EmailErr.Error()
	}
	return json.Marshal(out)
}

type Dispatcher struct {
	store  *LocalStore
	mailer Mailer
	from   mail.Address
	logger *zap.Logger
}

func NewDispatcher(store *LocalStore, mailer Mailer, from mail.Address, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{store: store, mailer: mailer, from: from, logger: logging.OrNop(logger)}
}

const emailBody = `Hello,

Your bespoke %s itinerary is attached as %s.

Every day is planned stop by stop, with dining picks, directions and a map link for each place.

Bon voyage,
Luxe AI Travel Agent
`

func Subject(destination string) string {
	return "Your Detailed Itinerary: " + destination
}

// Deliver saves doc locally and emails it to recipient. A failed email never
// removes the saved copy.
func (d *Dispatcher) Deliver(ctx context.Context, doc *models.RenderedDocument, recipient string) Report {
	var rep Report

	path, err := d.store.Save(doc.Filename, doc.Bytes)
	if err != nil {
		rep.SaveErr = fmt.Errorf("%w: saving %s: %v", apperr.ErrDelivery, doc.Filename, err)
		d.logger.Error("saving itinerary failed", zap.String("file", doc.Filename), zap.Error(err))
	} else {
		rep.SavedPath = path
		d.logger.Info("itinerary saved", zap.String("path", path))
	}

	if d.mailer == nil {
		rep.EmailErr = &apperr.DeliveryError{Recipient: recipient, Err: errors.New("no mailer configured")}
		return rep
	}
	msg := Message{
		From:           d.from,
		To:             recipient,
		Subject:        Subject(doc.Destination),
		Body:           fmt.Sprintf(emailBody, doc.Destination, doc.Filename),
		AttachmentName: doc.Filename,
		Attachment:     doc.Bytes,
	}
	if err := d.mailer.Send(ctx, msg); err != nil {
		rep.EmailErr = &apperr.DeliveryError{Recipient: recipient, Err: err}
		d.logger.Error("emailing itinerary failed", zap.String("to", recipient), zap.Error(err))
		return rep
	}
	rep.Emailed = true
	d.logger.Info("itinerary emailed", zap.String("to", recipient), zap.Int("bytes", len(doc.Bytes)))
	return rep
}
