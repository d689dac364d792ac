package models

import "math"

// NewNodeState creates the state of a node with the given handle
func NewNodeState(h Handle, pos Position, size Size, props NodeProperties) *NodeState {
	return &NodeState{
		Handle:     h,
		Position:   pos,
		Size:       size,
		Properties: props,
	}
}

// Distance returns the Euclidean distance between p and o
func (p Position) Distance(o Position) float64 {
	return math.Hypot(o.X-p.X, o.Y-p.Y)
}

// Add returns p translated by (dx, dy)
func (p Position) Add(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Sub returns p translated by -o
func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y}
}

// Center returns the center of the node's bounding box
func (n *NodeState) Center() Position {
	return Position{
		X: n.Position.X + n.Size.Width/2,
		Y: n.Position.Y + n.Size.Height/2,
	}
}

// Contains reports whether pos lies inside the node's bounding box.
// The box is closed: both the top-left and bottom-right corners are inside.
func (n *NodeState) Contains(pos Position) bool {
	return pos.X >= n.Position.X &&
		pos.Y >= n.Position.Y &&
		pos.X <= n.Position.X+n.Size.Width &&
		pos.Y <= n.Position.Y+n.Size.Height
}

// SetCentered moves the node so that its center is at pos
func (n *NodeState) SetCentered(pos Position) {
	n.Position = Position{
		X: pos.X - n.Size.Width/2,
		Y: pos.Y - n.Size.Height/2,
	}
}

// MoveToward moves the node by amount along the angle from its top-left
// position to aim. The amount is clamped to [-maxStep, maxStep]; negative
// amounts move the node away from aim. It returns the applied displacement.
func (n *NodeState) MoveToward(amount float64, aim Position, maxStep float64) (dx, dy float64) {
	amount = Clamp(amount, -maxStep, maxStep)
	angle := math.Atan2(aim.Y-n.Position.Y, aim.X-n.Position.X)
	dx = math.Cos(angle) * amount
	dy = math.Sin(angle) * amount
	n.Position.X += dx
	n.Position.Y += dy
	return dx, dy
}

// Clamp limits v to the closed range [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
