package models

type DataSourceType string

const (
	DataSourceWeather   DataSourceType = "weather"
	DataSourceSatellite DataSourceType = "satellite"
	DataSourceDerived   DataSourceType = "derived"
)

type DataSourceParameterName string

const (
	RainFall     DataSourceParameterName = "rainfall"
	Temperature  DataSourceParameterName = "temperature"
	NDVI         DataSourceParameterName = "ndvi"
	SoilMoisture DataSourceParameterName = "soil_moisture"
	Humidity     DataSourceParameterName = "humidity"
	WindSpeed    DataSourceParameterName = "wind_speed"
)

type BasePolicyStatus string

const (
	BasePolicyDraft    BasePolicyStatus = "draft"
	BasePolicyActive   BasePolicyStatus = "active"
	BasePolicyArchived BasePolicyStatus = "archived"
)

type PolicyStatus string

const (
	PolicyDraft         PolicyStatus = "draft"
	PolicyPendingReview PolicyStatus = "pending_review"
	PolicyActive        PolicyStatus = "active"
	PolicyExpired       PolicyStatus = "expired"
	PolicyCancelled     PolicyStatus = "cancelled"
	PolicyDispute       PolicyStatus = "dispute"
)

type ThresholdOperator string

const (
	ThresholdLT       ThresholdOperator = "<"
	ThresholdGT       ThresholdOperator = ">"
	ThresholdLTE      ThresholdOperator = "<="
	ThresholdGTE      ThresholdOperator = ">="
	ThresholdEQ       ThresholdOperator = "=="
	ThresholdNE       ThresholdOperator = "!="
	ThresholdChangeGT ThresholdOperator = "change_gt"
	ThresholdChangeLT ThresholdOperator = "change_lt"
)

type AggregationFunction string

const (
	AggregationSum    AggregationFunction = "sum"
	AggregationAvg    AggregationFunction = "avg"
	AggregationMin    AggregationFunction = "min"
	AggregationMax    AggregationFunction = "max"
	AggregationChange AggregationFunction = "change"
)

type LogicalOperator string

const (
	LogicalAND LogicalOperator = "AND"
	LogicalOR  LogicalOperator = "OR"
)

type MonitorFrequencyUnit string

const (
	MonitorFrequencyHour  MonitorFrequencyUnit = "hour"
	MonitorFrequencyDay   MonitorFrequencyUnit = "day"
	MonitorFrequencyWeek  MonitorFrequencyUnit = "week"
	MonitorFrequencyMonth MonitorFrequencyUnit = "month"
)

type ClaimStatus string

const (
	ClaimGenerated            ClaimStatus = "generated"
	ClaimPendingPartnerReview ClaimStatus = "pending_partner_review"
	ClaimApproved             ClaimStatus = "approved"
	ClaimRejected             ClaimStatus = "rejected"
	ClaimPaid                 ClaimStatus = "paid"
)

type ClaimRejectionType string

const (
	RejectionClaimDataIncorrect ClaimRejectionType = "claim_data_incorrect"
	RejectionTriggerNotMet      ClaimRejectionType = "trigger_not_met"
	RejectionPolicyNotActive    ClaimRejectionType = "policy_not_active"
	RejectionLocationMismatch   ClaimRejectionType = "location_mismatch"
	RejectionDuplicateClaim     ClaimRejectionType = "duplicate_claim"
	RejectionSuspectedFraud     ClaimRejectionType = "suspected_fraud"
	RejectionPolicyExclusion    ClaimRejectionType = "policy_exclusion"
	RejectionOther              ClaimRejectionType = "other"
)

type CancelRequestType string

const (
	CancelContractViolation   CancelRequestType = "contract_violation"
	CancelPolicyholderRequest CancelRequestType = "policyholder_request"
	CancelNonPayment          CancelRequestType = "non_payment"
	CancelRegulatoryChange    CancelRequestType = "regulatory_change"
	CancelOther               CancelRequestType = "other"
)

type CancelRequestStatus string

const (
	CancelPendingReview      CancelRequestStatus = "pending_review"
	CancelApproved           CancelRequestStatus = "approved"
	CancelDenied             CancelRequestStatus = "denied"
	CancelDispute            CancelRequestStatus = "dispute"
	CancelLitigationApproved CancelRequestStatus = "litigation_resolved_approved"
	CancelLitigationDenied   CancelRequestStatus = "litigation_resolved_denied"
)

type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
)

type DataQuality string

const (
	DataQualityGood       DataQuality = "good"
	DataQualityAcceptable DataQuality = "acceptable"
	DataQualityPoor       DataQuality = "poor"
)

// IsValidClaimRejectionType reports whether the value is part of the closed
// rejection taxonomy shared with forms and reports.
func IsValidClaimRejectionType(t ClaimRejectionType) bool {
	switch t {
	case RejectionClaimDataIncorrect, RejectionTriggerNotMet, RejectionPolicyNotActive,
		RejectionLocationMismatch, RejectionDuplicateClaim, RejectionSuspectedFraud,
		RejectionPolicyExclusion, RejectionOther:
		return true
	default:
		return false
	}
}

func IsValidCancelRequestType(t CancelRequestType) bool {
	switch t {
	case CancelContractViolation, CancelPolicyholderRequest, CancelNonPayment,
		CancelRegulatoryChange, CancelOther:
		return true
	default:
		return false
	}
}
