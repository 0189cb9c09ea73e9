package ledger

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/paystream/paystream/internal/notification"
)

// Bounds is the per-operation amount policy enforced at the HTTP boundary.
// The ledger core never relies on it.
type Bounds struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// Handler exposes transaction HTTP endpoints.
type Handler struct {
	service  *Service
	notifier notification.Notifier
	bounds   Bounds
}

// NewHandler constructs a transaction HTTP handler.
func NewHandler(service *Service, notifier notification.Notifier, bounds Bounds) *Handler {
	return &Handler{service: service, notifier: notifier, bounds: bounds}
}

type fundRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type transferRequest struct {
	RecipientID int64           `json:"recipientId"`
	Amount      decimal.Decimal `json:"amount"`
}

// Fund credits the authenticated user's balance.
func (h *Handler) Fund(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(int64)
	var req fundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.checkBounds(req.Amount, "fund"); err != nil {
		return err
	}

	outcome, err := h.service.Fund(c.UserContext(), uid, req.Amount)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"balance": outcome.Balance,
		"message": "Funding successful",
	})
}

// Transfer moves funds from the authenticated user to the recipient.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(int64)
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.RecipientID == 0 {
		return fiber.NewError(http.StatusBadRequest, "recipientId is required")
	}
	if err := h.checkBounds(req.Amount, "transfer"); err != nil {
		return err
	}

	outcome, err := h.service.Transfer(c.UserContext(), uid, req.RecipientID, req.Amount)
	if err != nil {
		return mapError(err)
	}

	if h.notifier != nil {
		_ = h.notifier.Send(c.UserContext(), notification.Message{
			Kind:        notification.KindTransferReceived,
			Destination: fmt.Sprintf("%d", req.RecipientID),
			Body:        fmt.Sprintf("You received %s from user %d", outcome.Transaction.Amount.StringFixed(2), uid),
		})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"balance": outcome.SenderBalance,
		"message": "Transfer successful",
	})
}

// List returns the authenticated user's paginated transaction history.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(int64)
	page := c.QueryInt("page", defaultPage)
	pageSize := c.QueryInt("limit", defaultPageSize)

	history, err := h.service.History(c.UserContext(), uid, page, pageSize)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(history)
}

func (h *Handler) checkBounds(amount decimal.Decimal, op string) error {
	if amount.LessThan(h.bounds.Min) {
		return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("you cannot %s less than %s", op, h.bounds.Min.String()))
	}
	if amount.GreaterThan(h.bounds.Max) {
		return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("you cannot %s more than %s at a time", op, h.bounds.Max.String()))
	}
	return nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidOperation), errors.Is(err, ErrInsufficientBalance):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
