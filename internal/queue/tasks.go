package queue

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// TaskProcessOrder dispatches a pending order to its suppliers
	TaskProcessOrder = "order:process"
	// TaskRetryDispatch re-dispatches the supplier groups that failed
	TaskRetryDispatch = "order:retry_dispatch"
	// TaskRefreshFulfillment re-polls supplier order status
	TaskRefreshFulfillment = "order:refresh_fulfillment"
	// TaskCartSweep sends every due abandoned cart reminder
	TaskCartSweep = "cart:sweep"
	// TaskCartReminder delivers one cart reminder
	TaskCartReminder = "cart:reminder"
)

// OrderPayload identifies the order a task works on
type OrderPayload struct {
	OrderID string `json:"order_id"`
}

// RefreshFulfillmentPayload selects one order, or every processing order when OrderID is empty
type RefreshFulfillmentPayload struct {
	OrderID string `json:"order_id,omitempty"`
}

// CartReminderPayload identifies the cart to remind about
type CartReminderPayload struct {
	CartID        string `json:"cart_id"`
	CustomerEmail string `json:"customer_email"`
	ReminderCount int    `json:"reminder_count"`
}

func newTask(typeName string, payload interface{}) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typeName, body), nil
}

// NewProcessOrderTask creates an order dispatch task
func NewProcessOrderTask(orderID string) (*asynq.Task, error) {
	return newTask(TaskProcessOrder, OrderPayload{OrderID: orderID})
}

// NewRetryDispatchTask creates a failed group retry task
func NewRetryDispatchTask(orderID string) (*asynq.Task, error) {
	return newTask(TaskRetryDispatch, OrderPayload{OrderID: orderID})
}

// NewRefreshFulfillmentTask creates a fulfillment refresh task
func NewRefreshFulfillmentTask(orderID string) (*asynq.Task, error) {
	return newTask(TaskRefreshFulfillment, RefreshFulfillmentPayload{OrderID: orderID})
}

// NewCartSweepTask creates the periodic abandoned cart sweep
func NewCartSweepTask() *asynq.Task {
	return asynq.NewTask(TaskCartSweep, nil)
}

// NewCartReminderTask creates a reminder delivery task
func NewCartReminderTask(payload CartReminderPayload) (*asynq.Task, error) {
	return newTask(TaskCartReminder, payload)
}
