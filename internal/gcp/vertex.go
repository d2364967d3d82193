package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Scribe Model Prompts ---
const ScribeSystemPrompt = "You are an expert AI medical scriber. Your sole mission is to transcribe medical prescription images into a structured JSON format with 100% accuracy. PATIENT SAFETY IS THE ABSOLUTE PRIORITY. Be systematic, precise, and transparent about any uncertainty."
const ScribeUserPrompt = `You will be provided with a prescription image.

Follow this protocol to transcribe it:

1.  **Analyze the Entire Image**: Before extracting, understand the layout, handwriting style, and context.
2.  **Field-by-Field Extraction**: Go through each field in the JSON structure below and find the corresponding information in the image.
3.  **Handle Missing Information**: If a field is not present in the image, leave its value as an empty string "" or an empty list []. DO NOT HALLUCINATE OR GUESS.
4.  **Handle Illegible Text**: If text for a field is present but you cannot read it with high confidence, use the format "[ILLEGIBLE: description of location/context]". Example: "[ILLEGIBLE: Doctor's signature]".
5.  **Date/Time Formatting**: Standardize dates to YYYY-MM-DD and time to HH:MM:SS (24-hour format) if possible.
6.  **Medication Parsing**: For each medication, create a separate object in the "medication" array with dose, dosage form, route, frequency, duration, and timing.

Your output MUST be a single, valid JSON object with exactly this structure:
{
"name": "", "date": "", "time": "", "doctorUsername": "", "patientUsername": "", "hospitalName": "", "hospitalId": "", "clinicalNote": "", "diagnosis": [], "complaints": [], "notes": [], "medication": [{"name": "", "medicationDetails": [{"dose": "", "dosage": "", "route": "", "freq": "", "dur": "", "class": "", "when": ""}]}], "test": [{"name": "", "instruction": "", "date": ""}], "followup": {"date": "", "reason": ""}, "vitals": {"BP": "", "Heartrate": "", "RespiratoryRate": "", "temp": "", "spO2": "", "weight": "", "height": "", "BMI": "", "waist_hips": ""}, "nursing": [{"instruction": "", "priority": ""}], "discharge": {"planned_date": "", "instruction": "", "Home_Care": "", "Recommendations": ""}, "icdCode": [], "medicalHistory": [], "labScanPdf": [], "systematicExamination": {"General": [], "CVS": [], "RS": [], "CNS": [], "PA": [], "ENT": []}, "assessmentPlan": "", "nutritionAssessment": [], "referredTo": {"doctorName": "", "doctorUsername": "", "phoneNumber": "", "email": "", "hospitalId": "", "hospitalName": "", "speciality": ""}, "scribePrescription": {"scribeId": "", "imageUrl": "", "storageId": "", "date": ""}
}`

// VertexClient holds the pre-configured generative model for our app.
type VertexClient struct {
	ScribeModel *genai.GenerativeModel
	baseClient  *genai.Client
}

// NewVertexClient creates a new client holding the scribe model.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	// --- Configure the scribe model ---
	scribeModel := baseClient.GenerativeModel(modelName)
	scribeModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ScribeSystemPrompt)},
	}
	scribeModel.GenerationConfig = genai.GenerationConfig{
		// Force JSON output. This is a critical setting for this model.
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0), // Low temp for deterministic, structured output
	}
	// Prescriptions routinely contain drug names and dosages; do not let the
	// safety filters block the transcription.
	scribeModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &VertexClient{
		ScribeModel: scribeModel,
		baseClient:  baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
