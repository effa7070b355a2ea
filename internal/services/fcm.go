package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type notificationText struct {
	title string
	body  func(params map[string]string) string
}

var notificationTemplates = map[Template]notificationText{
	TemplateReportAssigned: {
		title: "Collector Assigned",
		body: func(p map[string]string) string {
			return "A collector has been assigned to your waste report."
		},
	},
	TemplatePickupAssigned: {
		title: "New Pickup Assigned!",
		body: func(p map[string]string) string {
			if addr := p["address"]; addr != "" {
				return fmt.Sprintf("You have a new pickup at %s.", addr)
			}
			return "You have a new pickup on your route."
		},
	},
	TemplateReportCollected: {
		title: "Waste Collected",
		body: func(p map[string]string) string {
			return "Your reported waste has been collected. Thank you for reporting!"
		},
	},
	TemplateReportCancelled: {
		title: "Pickup Cancelled",
		body: func(p map[string]string) string {
			return "A pickup on your route has been cancelled."
		},
	},
}

// FCMNotifier sends templated pushes through Firebase Cloud Messaging
type FCMNotifier struct {
	client *messaging.Client
}

// NewFCMNotifier creates a notifier from a service account credentials file
func NewFCMNotifier(ctx context.Context, credentialsFile string) (*FCMNotifier, error) {
	return newFCMNotifier(ctx, option.WithCredentialsFile(credentialsFile))
}

// NewFCMNotifierFromBase64 creates a notifier from base64-encoded credentials.
// This is useful for cloud deployments where you can't upload files easily
func NewFCMNotifierFromBase64(ctx context.Context, credentialsBase64 string) (*FCMNotifier, error) {
	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}
	return newFCMNotifier(ctx, option.WithCredentialsJSON(credentialsJSON))
}

func newFCMNotifier(ctx context.Context, opt option.ClientOption) (*FCMNotifier, error) {
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMNotifier{client: client}, nil
}

// Notify renders the template and sends it to one device
func (n *FCMNotifier) Notify(ctx context.Context, token string, template Template, params map[string]string) error {
	message, err := buildMessage(token, template, params)
	if err != nil {
		return err
	}

	response, err := n.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending FCM message: %w", err)
	}

	log.Printf("✅ FCM %s notification sent: %s", template, response)
	return nil
}

func buildMessage(token string, template Template, params map[string]string) (*messaging.Message, error) {
	text, ok := notificationTemplates[template]
	if !ok {
		return nil, fmt.Errorf("unknown notification template %q", template)
	}

	data := map[string]string{"type": string(template)}
	for k, v := range params {
		data[k] = v
	}

	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: text.title,
			Body:  text.body(params),
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}, nil
}
