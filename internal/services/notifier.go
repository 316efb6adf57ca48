package services

import (
	"context"
	"fmt"

	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/platform/fcm"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
)

// OwnerNotifier tells the dataset owner their model is ready. Delivery is
// best-effort everywhere it is used; callers log failures and move on.
type OwnerNotifier interface {
	NotifyTrainingComplete(ctx context.Context, ds *domain.Dataset) error
}

type fcmNotifier struct {
	log    *logger.Logger
	client fcm.Client
}

func NewFCMOwnerNotifier(baseLog *logger.Logger, client fcm.Client) OwnerNotifier {
	return &fcmNotifier{
		log:    baseLog.With("service", "OwnerNotifier"),
		client: client,
	}
}

func (n *fcmNotifier) NotifyTrainingComplete(ctx context.Context, ds *domain.Dataset) error {
	if ds == nil {
		return nil
	}
	if ds.OwnerDeviceToken == "" {
		n.log.Debug("Dataset owner has no device token, skipping push", "dataset", ds.Name)
		return nil
	}
	if n.client == nil {
		n.log.Warn("Push client not configured, skipping owner notification", "dataset", ds.Name)
		return nil
	}
	return n.client.SendToDevice(ctx, ds.OwnerDeviceToken, fcm.Notification{
		Title: "Training Complete",
		Body:  fmt.Sprintf("The model for %s has finished training and is ready to use.", ds.Name),
	})
}
