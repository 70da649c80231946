package aecg

import (
	"encoding/xml"
	"strings"
)

// Element names carry no namespace so they match urn:hl7-org:v3 and
// documents written without a default namespace alike.

type xmlII struct {
	Root      string `xml:"root,attr"`
	Extension string `xml:"extension,attr"`
}

type xmlCD struct {
	Code        string `xml:"code,attr"`
	DisplayName string `xml:"displayName,attr"`
}

type xmlTS struct {
	Value string `xml:"value,attr"`
}

type xmlPQ struct {
	Value string `xml:"value,attr"`
	Unit  string `xml:"unit,attr"`
}

type xmlIVLTS struct {
	Low    xmlTS `xml:"low"`
	Center xmlTS `xml:"center"`
	High   xmlTS `xml:"high"`
}

type xmlText struct {
	Text string `xml:",chardata"`
}

func (t xmlText) String() string {
	return strings.TrimSpace(t.Text)
}

// xmlAnnotatedECG is the document root.
type xmlAnnotatedECG struct {
	XMLName        xml.Name
	ID             *xmlII                `xml:"id"`
	EffectiveTime  xmlIVLTS              `xml:"effectiveTime"`
	TimepointEvent *xmlTimepointEvent    `xml:"componentOf>timepointEvent"`
	Relative       *xmlRelativeTimepoint `xml:"definition>relativeTimepoint"`
	Components     []xmlSeriesComponent  `xml:"component"`
}

type xmlSeriesComponent struct {
	Series *xmlSeries `xml:"series"`
}

type xmlTimepointEvent struct {
	Code          xmlCD                 `xml:"code"`
	EffectiveTime xmlIVLTS              `xml:"effectiveTime"`
	ReasonCode    xmlCD                 `xml:"reasonCode"`
	Assignment    *xmlSubjectAssignment `xml:"componentOf>subjectAssignment"`
}

type xmlSubjectAssignment struct {
	Subject   *xmlTrialSubject  `xml:"subject>trialSubject"`
	Treatment xmlCD             `xml:"definition>treatmentGroupAssignment>code"`
	Trial     *xmlClinicalTrial `xml:"componentOf>clinicalTrial"`
}

type xmlTrialSubject struct {
	ID        *xmlII `xml:"id"`
	Gender    xmlCD  `xml:"subjectDemographicPerson>administrativeGenderCode"`
	BirthTime xmlTS  `xml:"subjectDemographicPerson>birthTime"`
	Race      xmlCD  `xml:"subjectDemographicPerson>raceCode"`
}

type xmlClinicalTrial struct {
	ID    *xmlII  `xml:"id"`
	Title xmlText `xml:"title"`
}

type xmlRelativeTimepoint struct {
	Code          xmlCD  `xml:"code"`
	PauseQuantity *xmlPQ `xml:"componentOf>pauseQuantity"`
	Protocol      *struct {
		Code           xmlCD `xml:"code"`
		ReferenceEvent xmlCD `xml:"component>referenceEvent>code"`
	} `xml:"componentOf>protocolTimepointEvent"`
}

type xmlSeries struct {
	ID            *xmlII                `xml:"id"`
	Code          xmlCD                 `xml:"code"`
	EffectiveTime xmlIVLTS              `xml:"effectiveTime"`
	Author        xmlSeriesAuthor       `xml:"author>seriesAuthor"`
	Components    []xmlSequenceSetComp  `xml:"component"`
	Derivations   []xmlDerivation       `xml:"derivation"`
	SubjectOf     []xmlAnnotationSetRef `xml:"subjectOf"`
}

type xmlSeriesAuthor struct {
	Manufacturer xmlText `xml:"manufacturerOrganization>name"`
	Model        xmlText `xml:"manufacturedSeriesDevice>manufacturerModelName"`
	Software     xmlText `xml:"manufacturedSeriesDevice>softwareName"`
}

type xmlDerivation struct {
	DerivedSeries []*xmlSeries `xml:"derivedSeries"`
}

type xmlSequenceSetComp struct {
	SequenceSet *xmlSequenceSet `xml:"sequenceSet"`
}

type xmlSequenceSet struct {
	Components []struct {
		Sequence *xmlSequence `xml:"sequence"`
	} `xml:"component"`
}

type xmlSequence struct {
	Code  xmlCD            `xml:"code"`
	Value xmlSequenceValue `xml:"value"`
}

type xmlSequenceValue struct {
	Head      *xmlPQ   `xml:"head"`
	Increment *xmlPQ   `xml:"increment"`
	Origin    *xmlPQ   `xml:"origin"`
	Scale     *xmlPQ   `xml:"scale"`
	Digits    *xmlText `xml:"digits"`
}

type xmlAnnotationSetRef struct {
	AnnotationSet *xmlAnnotationSet `xml:"annotationSet"`
}

type xmlAnnotationSet struct {
	Person      xmlText             `xml:"author>assignedEntity>assignedAuthorType>assignedPerson>name"`
	DeviceModel xmlText             `xml:"author>assignedEntity>assignedAuthorType>assignedDevice>manufacturerModelName"`
	DeviceName  xmlText             `xml:"author>assignedEntity>assignedAuthorType>assignedDevice>playedManufacturedDevice>manufacturerOrganization>name"`
	Components  []xmlAnnotationComp `xml:"component"`
}

type xmlAnnotationComp struct {
	Annotation *xmlAnnotation `xml:"annotation"`
}

type xmlAnnotation struct {
	Code       xmlCD               `xml:"code"`
	Value      *xmlAnnotationValue `xml:"value"`
	Boundaries []xmlBoundary       `xml:"support>supportingROI>component>boundary"`
	Components []xmlAnnotationComp `xml:"component"`
}

// xmlAnnotationValue covers the CD, PQ and IVL_PQ forms of an annotation
// value.
type xmlAnnotationValue struct {
	Code  string `xml:"code,attr"`
	Value string `xml:"value,attr"`
	Unit  string `xml:"unit,attr"`
	Low   *xmlPQ `xml:"low"`
	High  *xmlPQ `xml:"high"`
}

type xmlBoundary struct {
	Code  xmlCD               `xml:"code"`
	Value *xmlAnnotationValue `xml:"value"`
}
