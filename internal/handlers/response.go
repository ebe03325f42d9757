package handlers

import "kanbanflow/internal/response"

// Re-export response functions for convenience
var (
	SendSuccess       = response.SendSuccess
	SendError         = response.SendError
	SendSuccessNoData = response.SendSuccessNoData
)
