package aecg

import (
	"strings"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

// sampleAECG is a small but complete aECG with a rhythm strip of two leads,
// one annotated beat, and a derived beat with relative timing.
const sampleAECG = `<?xml version="1.0" encoding="UTF-8"?>
<AnnotatedECG xmlns="urn:hl7-org:v3" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <id root="61d1a24f-b47e-41aa-ae95-f8ac302f4eeb"/>
  <code code="93000" codeSystem="2.16.840.1.113883.6.12"/>
  <effectiveTime>
    <low value="20021122091000"/>
    <high value="20021122091010"/>
  </effectiveTime>
  <componentOf>
    <timepointEvent>
      <code code="VISIT_2" displayName="Day 1 predose"/>
      <effectiveTime>
        <low value="20021122091000"/>
        <high value="20021122091010"/>
      </effectiveTime>
      <reasonCode code="PER_PROTOCOL"/>
      <componentOf>
        <subjectAssignment>
          <subject>
            <trialSubject>
              <id root="2.16.840.1.113883.3.5" extension="SUBJ-001"/>
              <subjectDemographicPerson>
                <administrativeGenderCode code="F"/>
                <birthTime value="19700523"/>
                <raceCode code="2106-3"/>
              </subjectDemographicPerson>
            </trialSubject>
          </subject>
          <definition>
            <treatmentGroupAssignment>
              <code code="PLACEBO"/>
            </treatmentGroupAssignment>
          </definition>
          <componentOf>
            <clinicalTrial>
              <id root="2.16.840.1.113883.3.4" extension="STUDY-42"/>
              <title>Thorough QT study</title>
            </clinicalTrial>
          </componentOf>
        </subjectAssignment>
      </componentOf>
    </timepointEvent>
  </componentOf>
  <definition>
    <relativeTimepoint>
      <code code="PREDOSE" displayName="Pre-dose"/>
      <componentOf>
        <pauseQuantity value="-30" unit="min"/>
        <protocolTimepointEvent>
          <code code="DAY1" displayName="Day 1"/>
          <component>
            <referenceEvent>
              <code code="DOSE" displayName="First dose"/>
            </referenceEvent>
          </component>
        </protocolTimepointEvent>
      </componentOf>
    </relativeTimepoint>
  </definition>
  <component>
    <series>
      <id root="1.2.3" extension="rhythm-1"/>
      <code code="RHYTHM"/>
      <effectiveTime>
        <low value="20021122091000"/>
        <high value="20021122091010"/>
      </effectiveTime>
      <author>
        <seriesAuthor>
          <manufacturedSeriesDevice>
            <manufacturerModelName>MAC 5000</manufacturerModelName>
            <softwareName>12SL v11</softwareName>
          </manufacturedSeriesDevice>
          <manufacturerOrganization>
            <name>GE Healthcare</name>
          </manufacturerOrganization>
        </seriesAuthor>
      </author>
      <component>
        <sequenceSet>
          <component>
            <sequence>
              <code code="TIME_ABSOLUTE"/>
              <value xsi:type="GLIST_TS">
                <head value="20021122091000.000"/>
                <increment value="2" unit="ms"/>
              </value>
            </sequence>
          </component>
          <component>
            <sequence>
              <code code="MDC_ECG_LEAD_I"/>
              <value xsi:type="SLIST_PQ">
                <origin value="0" unit="uV"/>
                <scale value="5" unit="uV"/>
                <digits>1 2 3 4 5</digits>
              </value>
            </sequence>
          </component>
          <component>
            <sequence>
              <code code="MDC_ECG_LEAD_II"/>
              <value xsi:type="SLIST_PQ">
                <origin value="0" unit="uV"/>
                <scale value="5" unit="uV"/>
                <digits>2 4 NA 8 10</digits>
              </value>
            </sequence>
          </component>
        </sequenceSet>
      </component>
      <subjectOf>
        <annotationSet>
          <author>
            <assignedEntity>
              <assignedAuthorType>
                <assignedPerson>
                  <name>Dr Reader</name>
                </assignedPerson>
              </assignedAuthorType>
            </assignedEntity>
          </author>
          <component>
            <annotation>
              <code code="MDC_ECG_BEAT"/>
              <value code="MDC_ECG_BEAT_NORMAL"/>
              <support>
                <supportingROI>
                  <component>
                    <boundary>
                      <code code="MDC_ECG_LEAD_II"/>
                    </boundary>
                  </component>
                </supportingROI>
              </support>
              <component>
                <annotation>
                  <code code="MDC_ECG_WAVC_TYPE"/>
                  <value code="MDC_ECG_WAVC_PWAVE"/>
                  <support>
                    <supportingROI>
                      <component>
                        <boundary>
                          <code code="TIME_ABSOLUTE"/>
                          <value>
                            <low value="20021122091000.100"/>
                            <high value="20021122091000.200"/>
                          </value>
                        </boundary>
                      </component>
                    </supportingROI>
                  </support>
                </annotation>
              </component>
              <component>
                <annotation>
                  <code code="MDC_ECG_WAVC_TYPE"/>
                  <value code="MDC_ECG_WAVC_QRSWAVE"/>
                  <support>
                    <supportingROI>
                      <component>
                        <boundary>
                          <code code="TIME_ABSOLUTE"/>
                          <value>
                            <low value="20021122091000.260"/>
                            <high value="20021122091000.350"/>
                          </value>
                        </boundary>
                      </component>
                    </supportingROI>
                  </support>
                </annotation>
              </component>
              <component>
                <annotation>
                  <code code="MDC_ECG_WAVC_TYPE"/>
                  <value code="MDC_ECG_WAVC_TWAVE"/>
                  <support>
                    <supportingROI>
                      <component>
                        <boundary>
                          <code code="TIME_ABSOLUTE"/>
                          <value>
                            <low value="20021122091000.450"/>
                            <high value="20021122091000.660"/>
                          </value>
                        </boundary>
                      </component>
                    </supportingROI>
                  </support>
                </annotation>
              </component>
            </annotation>
          </component>
        </annotationSet>
      </subjectOf>
      <derivation>
        <derivedSeries>
          <id root="1.2.3" extension="beat-1"/>
          <code code="REPRESENTATIVE_BEAT"/>
          <component>
            <sequenceSet>
              <component>
                <sequence>
                  <code code="TIME_RELATIVE"/>
                  <value xsi:type="GLIST_PQ">
                    <head value="0" unit="ms"/>
                    <increment value="2" unit="ms"/>
                  </value>
                </sequence>
              </component>
              <component>
                <sequence>
                  <code code="MDC_ECG_LEAD_II"/>
                  <value xsi:type="SLIST_PQ">
                    <origin value="0" unit="uV"/>
                    <scale value="5" unit="uV"/>
                    <digits>1 2 3</digits>
                  </value>
                </sequence>
              </component>
            </sequenceSet>
          </component>
          <subjectOf>
            <annotationSet>
              <component>
                <annotation>
                  <code code="MDC_ECG_WAVC_TYPE"/>
                  <value code="MDC_ECG_WAVC_QRSWAVE"/>
                  <support>
                    <supportingROI>
                      <component>
                        <boundary>
                          <code code="TIME_RELATIVE"/>
                          <value>
                            <low value="40" unit="ms"/>
                            <high value="130" unit="ms"/>
                          </value>
                        </boundary>
                      </component>
                      <component>
                        <boundary>
                          <code code="MDC_ECG_LEAD_V6"/>
                        </boundary>
                      </component>
                    </supportingROI>
                  </support>
                </annotation>
              </component>
              <component>
                <annotation>
                  <code code="MDC_ECG_TIME_PD_QT"/>
                  <value value="400" unit="ms"/>
                </annotation>
              </component>
            </annotationSet>
          </subjectOf>
        </derivedSeries>
      </derivation>
    </series>
  </component>
</AnnotatedECG>
`

func rawDoc(content string) *domain.RawDocument {
	return &domain.RawDocument{
		Origin:  domain.Origin{StudyDir: "/study", XMLPath: "/study/ecg1.xml"},
		Content: []byte(content),
	}
}

// variant returns the fixture with old replaced by new exactly once.
func variant(old, replacement string) string {
	return stringsReplace(sampleAECG, old, replacement)
}

func stringsReplace(s, old, replacement string) string {
	if !strings.Contains(s, old) {
		panic("fixture fragment not found: " + old)
	}
	return strings.Replace(s, old, replacement, 1)
}

// cut removes everything from the first start to the following end,
// both included.
func cut(s, start, end string) string {
	i := strings.Index(s, start)
	j := strings.Index(s, end)
	if i < 0 || j < i {
		panic("fixture fragment not found: " + start)
	}
	return s[:i] + s[j+len(end):]
}
