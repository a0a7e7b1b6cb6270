package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/puzzle-rooms/internal/services"
	"github.com/localnerve/puzzle-rooms/internal/types"
	"github.com/localnerve/puzzle-rooms/internal/utils"
)

// PieceHandler handles piece state routes
type PieceHandler struct {
	Store *services.Store
}

type movePieceRequest struct {
	X types.FlexFloat64 `json:"x"`
	Y types.FlexFloat64 `json:"y"`
}

// ListPieces handles GET /api/rooms/:id/pieces
// @Summary List the pieces of a room in index order
// @Tags Pieces
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {array} models.Piece
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /rooms/{id}/pieces [get]
func (h *PieceHandler) ListPieces(c *fiber.Ctx) error {
	if _, err := h.Store.GetRoom(c.Context(), c.Params("id")); err != nil {
		return err
	}

	pieces, err := h.Store.ListPieces(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	return utils.SuccessResponse(c, pieces, fiber.StatusOK)
}

// MovePiece handles POST /api/pieces/:id/move
// @Summary Record a piece position, snapping when within placement tolerance
// @Description Concurrent movers follow last-writer-wins; the final write stands
// @Tags Pieces
// @Accept json
// @Produce json
// @Param id path string true "Piece ID"
// @Param request body movePieceRequest true "New position"
// @Success 200 {object} models.Piece
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /pieces/{id}/move [post]
func (h *PieceHandler) MovePiece(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req movePieceRequest
	if err := c.BodyParser(&req); err != nil {
		return types.Validation("Invalid move payload")
	}

	piece, err := h.Store.MovePiece(c.Context(), c.Params("id"), userID, req.X.Float64(), req.Y.Float64())
	if err != nil {
		return err
	}

	return utils.SuccessResponse(c, piece, fiber.StatusOK)
}
