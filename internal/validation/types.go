package validation

// SyncRequest is the payload for POST /api/sync. An empty body syncs since
// the latest stored order.
type SyncRequest struct {
	Since string `json:"since" validate:"omitempty,datetime=2006-01-02"`
}

// ItemRef names one line item of one order.
type ItemRef struct {
	OrderID    int64 `json:"order_id" validate:"required,gt=0"`
	LineItemID int64 `json:"line_item_id" validate:"required,gt=0"`
}

// DispatchRequest is the payload for POST /api/production/dispatch
type DispatchRequest struct {
	ItemRef
	ProductionType string  `json:"production_type" validate:"required,production_type"`
	AssignedTo     *string `json:"assigned_to" validate:"omitempty,max=80"`
}

// RedispatchRequest is the payload for POST /api/production/redispatch
type RedispatchRequest struct {
	ItemRef
	NewType string `json:"new_type" validate:"required,production_type"`
}

// StatusRequest is the payload for PUT /api/production/status
type StatusRequest struct {
	ItemRef
	Status string  `json:"status" validate:"required,production_status"`
	Notes  *string `json:"notes" validate:"omitempty,max=2000"`
	Urgent *bool   `json:"urgent"`
}

// UrgentRequest is the payload for PUT /api/production/urgent
type UrgentRequest struct {
	ItemRef
	Urgent *bool `json:"urgent" validate:"required"`
}

// AssignmentRequest is the payload for POST /api/assignments. ArticleID is
// either "orderId_lineItemId" or a bare line item id.
type AssignmentRequest struct {
	ArticleID      string `json:"article_id" validate:"required,article_id"`
	TricoteuseID   string `json:"tricoteuse_id" validate:"required"`
	TricoteuseName string `json:"tricoteuse_name" validate:"required,max=80"`
	Status         string `json:"status" validate:"omitempty,production_status,ne=a_faire"`
	Urgent         bool   `json:"urgent"`
}

// WorkerRequest is the payload for POST and PUT /api/tricoteuses
type WorkerRequest struct {
	Name     string `json:"name" validate:"required,max=80"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Color    string `json:"color" validate:"omitempty,hexcolor"`
	PhotoURL string `json:"photo_url" validate:"omitempty,url"`
	Gender   string `json:"gender" validate:"omitempty,oneof=f h"`
	Active   *bool  `json:"active"`
}

// DelaiRequest is the payload for PUT /api/delai
type DelaiRequest struct {
	JoursDelai     int             `json:"joursDelai" validate:"required"`
	JoursOuvrables map[string]bool `json:"joursOuvrables" validate:"required"`
}

// NoteRequest is the payload for PUT /api/orders/:id/note
type NoteRequest struct {
	CustomerNote string `json:"customer_note" validate:"max=2000"`
}
