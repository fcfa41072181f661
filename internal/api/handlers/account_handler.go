package handlers

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/postpilot/configs"
	"github.com/maheshrc27/postpilot/internal/service"
)

type AccountHandler struct {
	s   service.AccountService
	cfg config.Config
}

func NewAccountHandler(cfg config.Config, service service.AccountService) *AccountHandler {
	return &AccountHandler{s: service, cfg: cfg}
}

// Connect kicks off the OAuth flow for the platform in the path.
func (h *AccountHandler) Connect(c *fiber.Ctx) error {
	userID := GetUserID(c)
	platformName := c.Params("platform")

	authURL, err := h.s.BeginConnection(c.Context(), userID, platformName)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Redirect(authURL)
}

// Callback lands the OAuth redirect. The user identity comes from the signed
// state, not from the session.
func (h *AccountHandler) Callback(c *fiber.Ctx) error {
	// The platform reports a denied consent screen through the error
	// parameter; send the user back to the frontend with it.
	if denial := c.Query("error"); denial != "" {
		return c.Redirect(h.cfg.FrontendURL+"/accounts?error="+url.QueryEscape(denial), fiber.StatusTemporaryRedirect)
	}

	state := c.Query("state")
	code := c.Query("code")

	if state == "" || code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing state or code",
		})
	}

	_, err := h.s.CompleteConnection(c.Context(), state, code)
	if err != nil {
		if errors.Is(err, service.ErrAccountConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to connect account",
		})
	}

	return c.Redirect(h.cfg.FrontendURL+"/accounts", fiber.StatusTemporaryRedirect)
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accounts, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accounts)
}

func (h *AccountHandler) SetDefault(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := c.QueryInt("id", 0)

	err := h.s.SetDefault(c.Context(), userID, int64(accountID))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Account doesn't exist",
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to set default account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *AccountHandler) SetNickname(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := c.QueryInt("id", 0)

	var body struct {
		Nickname string `json:"nickname"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	err := h.s.SetNickname(c.Context(), userID, int64(accountID), body.Nickname)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Account doesn't exist",
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to set nickname",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *AccountHandler) RefreshAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := c.QueryInt("id", 0)

	err := h.s.ForceRefresh(c.Context(), userID, int64(accountID))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Account doesn't exist",
			})
		}
		if errors.Is(err, service.ErrReconnectRequired) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to refresh account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *AccountHandler) DeleteAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := c.QueryInt("id", 0)

	err := h.s.Disconnect(c.Context(), userID, int64(accountID))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Account doesn't exist",
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to remove account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
