package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"

	"github.com/sells-group/delay-risk-cli/internal/codec"
	"github.com/sells-group/delay-risk-cli/internal/model"
	"github.com/sells-group/delay-risk-cli/internal/report"
)

type predictResponse struct {
	ID                 string     `json:"id,omitempty"`
	Probability        float64    `json:"probability"`
	ProbabilityRounded float64    `json:"probability_rounded"`
	Tier               model.Tier `json:"tier"`
	Headline           string     `json:"headline"`
	Actions            []string   `json:"actions"`
	ModelRunID         string     `json:"model_run_id,omitempty"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	row, status, msg, details := decodeRow(body)
	if status != 0 {
		writeError(w, status, msg, details...)
		return
	}

	a, err := s.scoring.Assess(row)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp := predictResponse{
		Probability:        a.Probability,
		ProbabilityRounded: report.RoundProbability(a.Probability),
		Tier:               a.Tier,
		Headline:           report.Headline(a.Tier),
		Actions:            report.Actions(a.Tier),
	}
	if m := s.scoring.Manifest(); m != nil {
		resp.ModelRunID = m.RunID
	}

	if s.store != nil {
		p := &model.Prediction{
			Row:         row,
			Probability: a.Probability,
			Tier:        a.Tier,
			Source:      model.SourceAPI,
			ModelRunID:  resp.ModelRunID,
		}
		if err := s.store.RecordPrediction(r.Context(), p); err != nil {
			zap.L().Error("api: record prediction", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to record prediction")
			return
		}
		resp.ID = p.ID
	}

	writeJSON(w, http.StatusOK, resp)
}

// decodeRow parses and validates a predict body. A non-zero status reports
// why the body was rejected.
func decodeRow(body []byte) (model.FeatureRow, int, string, []string) {
	var row model.FeatureRow
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return row, http.StatusBadRequest, "invalid JSON body", nil
	}
	sch, err := predictRequestSchema()
	if err != nil {
		return row, http.StatusInternalServerError, err.Error(), nil
	}
	if err := sch.Validate(doc); err != nil {
		return row, http.StatusUnprocessableEntity, "request does not match schema", validationDetails(err)
	}
	if err := json.Unmarshal(body, &row); err != nil {
		return row, http.StatusBadRequest, "invalid JSON body", nil
	}
	return row, 0, "", nil
}

func describeField(sum codec.FieldSummary) fieldInfo {
	info := fieldInfo{
		FieldSummary: sum,
		Label:        report.Label(sum.Field),
		Choices:      model.Choices(sum.Field),
	}
	if b, ok := model.Bounds[sum.Field]; ok {
		info.Min, info.Max = model.Float(b.Min), model.Float(b.Max)
		info.Integer = b.Integer
	}
	return info
}
