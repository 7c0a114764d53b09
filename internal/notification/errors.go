package notification

import "errors"

var (
	ErrMissingNotificationID = errors.New("notification job is missing notification_id")
	ErrMissingRequestID      = errors.New("notification job is missing request_id")
	ErrMissingPushToken      = errors.New("notification job is missing push_token")
)
