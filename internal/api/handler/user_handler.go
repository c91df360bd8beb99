package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quickcart/commerce-api/internal/core/domain"
	"github.com/quickcart/commerce-api/internal/core/ports"
)

// capRegistry renders capability masks as role names in responses. The
// registry is a closed set; construction cannot fail at runtime.
var capRegistry = mustRegistry()

func mustRegistry() *domain.CapabilityRegistry {
	r, err := domain.NewCapabilityRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

func toUserResponse(u *domain.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Mask:     uint64(u.Mask),
		Roles:    capRegistry.Names(u.Mask),
	}
}

type UserHandler struct {
	users ports.UserService
	auth  ports.AuthService
}

func NewUserHandler(users ports.UserService, auth ports.AuthService) *UserHandler {
	return &UserHandler{users: users, auth: auth}
}

type cartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	Quantity  int    `json:"quantity" validate:"min=0"`
}

type replaceCartRequest struct {
	Items []cartItemRequest `json:"items"`
}

type roleChangeRequest struct {
	Grant  []string `json:"grant,omitempty"`
	Revoke []string `json:"revoke,omitempty"`
}

type profileResponse struct {
	User *userResponse     `json:"user"`
	Cart []domain.CartItem `json:"cart"`
}

// Me returns the authenticated user's profile and cart.
//
// @Summary      Current user profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  map[string]string
// @Router       /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	user, err := h.users.Me(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, profileResponse{User: toUserResponse(user), Cart: user.Cart})
}

// ReplaceCart replaces the authenticated user's cart wholesale.
//
// @Summary      Replace cart contents
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      replaceCartRequest  true  "New cart contents"
// @Success      200   {object}  profileResponse
// @Failure      401   {object}  map[string]string
// @Router       /users/me/cart [put]
func (h *UserHandler) ReplaceCart(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req replaceCartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	cart := make([]domain.CartItem, 0, len(req.Items))
	for _, item := range req.Items {
		cart = append(cart, domain.CartItem{
			ProductID: item.ProductID,
			Size:      item.Size,
			Color:     item.Color,
			Quantity:  item.Quantity,
		})
	}

	user, err := h.users.ReplaceCart(c.Request().Context(), p, cart)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, profileResponse{User: toUserResponse(user), Cart: user.Cart})
}

// AddCartItem appends one item to the authenticated user's cart.
//
// @Summary      Add a cart item
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      cartItemRequest  true  "Item to add"
// @Success      200   {object}  profileResponse
// @Failure      401   {object}  map[string]string
// @Router       /users/me/cart/items [post]
func (h *UserHandler) AddCartItem(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req cartItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	user, err := h.users.AddCartItem(c.Request().Context(), p, domain.CartItem{
		ProductID: req.ProductID,
		Size:      req.Size,
		Color:     req.Color,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, profileResponse{User: toUserResponse(user), Cart: user.Cart})
}

// RemoveCartItem removes every cart line for a product.
//
// @Summary      Remove a cart item
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        product_id  path      string  true  "Product id"
// @Success      200         {object}  profileResponse
// @Failure      401         {object}  map[string]string
// @Router       /users/me/cart/items/{product_id} [delete]
func (h *UserHandler) RemoveCartItem(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	user, err := h.users.RemoveCartItem(c.Request().Context(), p, c.Param("product_id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, profileResponse{User: toUserResponse(user), Cart: user.Cart})
}

// ChangeRoles grants and revokes capabilities on a user. ADMIN only.
//
// @Summary      Change a user's roles
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User id"
// @Param        body  body      roleChangeRequest  true  "Roles to grant and revoke"
// @Success      200   {object}  userResponse
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /users/{id}/roles [patch]
func (h *UserHandler) ChangeRoles(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req roleChangeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.auth.ChangeRoles(c.Request().Context(), ports.RoleChangeInput{
		UserID: c.Param("id"),
		Grant:  req.Grant,
		Revoke: req.Revoke,
		Actor:  p,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toUserResponse(user))
}
