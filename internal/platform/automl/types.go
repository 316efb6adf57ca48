package automl

import "encoding/json"

// OperationMetadata is the provider's view of a long-running operation.
// Name is the opaque handle used to poll status; Done stays false until the
// provider finishes (an absent field decodes as false, never as done).
type OperationMetadata struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Error    *OperationError `json:"error,omitempty"`
}

type OperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Dataset struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	ExampleCount int   `json:"exampleCount,omitempty"`
	CreateTime  string `json:"createTime,omitempty"`

	ImageClassificationDatasetMetadata *ImageClassificationDatasetMetadata `json:"imageClassificationDatasetMetadata,omitempty"`
}

type ImageClassificationDatasetMetadata struct {
	ClassificationType string `json:"classificationType"`
}

type Model struct {
	Name        string `json:"name"`
	DatasetID   string `json:"datasetId"`
	DisplayName string `json:"displayName"`
	CreateTime  string `json:"createTime"`
	UpdateTime  string `json:"updateTime,omitempty"`

	ImageClassificationModelMetadata *ImageClassificationModelMetadata `json:"imageClassificationModelMetadata,omitempty"`
}

type ImageClassificationModelMetadata struct {
	TrainBudget json.Number `json:"trainBudget,omitempty"`
	TrainCost   json.Number `json:"trainCost,omitempty"`
	StopReason  string      `json:"stopReason,omitempty"`
	ModelType   string      `json:"modelType,omitempty"`
}

type listDatasetsResponse struct {
	Datasets []Dataset `json:"datasets"`
}

type listModelsResponse struct {
	Model []Model `json:"model"`
}

type importDataRequest struct {
	InputConfig inputConfig `json:"inputConfig"`
}

type inputConfig struct {
	GcsSource gcsSource `json:"gcsSource"`
}

type gcsSource struct {
	InputURIs []string `json:"inputUris"`
}

type createModelRequest struct {
	Model modelSpec `json:"model"`
}

type modelSpec struct {
	DisplayName string `json:"displayName"`
	DatasetID   string `json:"datasetId"`

	ImageClassificationModelMetadata imageClassificationModelSpec `json:"imageClassificationModelMetadata"`
}

type imageClassificationModelSpec struct {
	TrainBudget int    `json:"trainBudget"`
	ModelType   string `json:"modelType"`
}

type exportModelRequest struct {
	OutputConfig exportOutputConfig `json:"output_config"`
}

type exportOutputConfig struct {
	ModelFormat    string         `json:"model_format"`
	GcsDestination gcsDestination `json:"gcs_destination"`
}

type gcsDestination struct {
	OutputURIPrefix string `json:"output_uri_prefix"`
}
